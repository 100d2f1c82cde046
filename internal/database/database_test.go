package database

import (
	"context"
	"io"
	"testing"
	"time"

	"holidayrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seedProperty(t *testing.T, db *DB, id string, maxGuests int, price float64) *models.Property {
	t.Helper()
	p := &models.Property{
		ID:            id,
		OwnerID:       "owner-1",
		Name:          "Mas " + id,
		Description:   "Stone farmhouse",
		PropertyType:  models.PropertyFarmhouse,
		Location:      models.Location{Address: "1 Chemin", City: "Gordes", Region: "Provence", PostalCode: "84220"},
		Bedrooms:      3,
		Bathrooms:     2,
		MaxGuests:     maxGuests,
		PricePerNight: price,
		Amenities:     []string{"pool", "wifi"},
		IsActive:      true,
	}
	require.NoError(t, db.CreateProperty(context.Background(), p))
	return p
}

func seedBooking(t *testing.T, db *DB, propertyID, userID, in, out string, status models.BookingStatus) *models.Booking {
	t.Helper()
	b := &models.Booking{
		PropertyID:    propertyID,
		UserID:        userID,
		CheckIn:       date(t, in),
		CheckOut:      date(t, out),
		Guests:        2,
		TotalPrice:    100,
		Status:        status,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, db.CreateBookingIfAvailable(context.Background(), b))
	return b
}
