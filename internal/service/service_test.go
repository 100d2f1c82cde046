package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"holidayrent/internal/config"
	"holidayrent/internal/database"
	"holidayrent/internal/events"
	"holidayrent/internal/models"
	"holidayrent/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	guest      = models.Identity{UserID: "guest-1", Role: models.RoleGuest}
	otherGuest = models.Identity{UserID: "guest-2", Role: models.RoleGuest}
	owner      = models.Identity{UserID: "owner-1", Role: models.RoleOwner}
	admin      = models.Identity{UserID: "admin-1", Role: models.RoleAdmin}
)

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, taskType string, b *models.Booking) error {
	return m.Called(taskType, b.ID).Error(0)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handle(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	db         *database.DB
	events     *recorder
	worker     *mockWorker
	properties *PropertyService
	bookings   *BookingService
	ratings    *RatingAggregator
	reviews    *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec := &recorder{}
	bus := events.NewEventBus()
	bus.Subscribe(rec.handle, append(events.BookingEvents, events.ReviewEvents...)...)

	worker := new(mockWorker)
	worker.On("EnqueueTask", mock.Anything, mock.Anything).Return(nil).Maybe()

	properties := NewPropertyService(db, config.CacheConfig{PropertyTTL: time.Minute, PropertyMaxSize: 100}, &logger)
	t.Cleanup(properties.Close)

	ratings := NewRatingAggregator(db, properties, &logger)
	return &fixture{
		db:         db,
		events:     rec,
		worker:     worker,
		properties: properties,
		bookings:   NewBookingService(db, pricing.NewCalculator(db), bus, worker, &logger),
		ratings:    ratings,
		reviews:    NewReviewService(db, ratings, bus, &logger),
	}
}

func (f *fixture) property(t *testing.T, maxGuests int, price float64) *models.Property {
	t.Helper()
	p, err := f.properties.CreateProperty(context.Background(), owner, models.NewProperty{
		Name:          "Mas des Lavandes",
		Description:   "Stone farmhouse with pool",
		PropertyType:  models.PropertyFarmhouse,
		Location:      models.Location{Address: "1 Chemin", City: "Gordes", Region: "Provence", PostalCode: "84220"},
		Bedrooms:      3,
		Bathrooms:     2,
		MaxGuests:     maxGuests,
		PricePerNight: price,
		Amenities:     []string{"pool"},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) book(t *testing.T, caller models.Identity, propertyID, in, out string, guests int) (*models.BookingDetails, error) {
	t.Helper()
	return f.bookings.CreateBooking(context.Background(), caller, models.NewBooking{
		PropertyID: propertyID,
		CheckIn:    day(t, in),
		CheckOut:   day(t, out),
		Guests:     guests,
	})
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}
