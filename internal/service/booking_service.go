package service

import (
	"context"
	"errors"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/events"
	"holidayrent/internal/metrics"
	"holidayrent/internal/models"
	"holidayrent/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	SyncTaskUpsert       = "upsert"
	SyncTaskUpdateStatus = "update_status"
)

// BookingStore is the storage the booking lifecycle needs.
type BookingStore interface {
	domain.BookingRepository
	GetProperty(ctx context.Context, id string) (*models.Property, error)
}

type BookingService struct {
	store        BookingStore
	availability *AvailabilityChecker
	pricing      *pricing.Calculator
	validate     *Validator
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	locks        *keyedMutex
	now          func() time.Time
	logger       *zerolog.Logger
}

func NewBookingService(
	store BookingStore,
	calculator *pricing.Calculator,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		store:        store,
		availability: NewAvailabilityChecker(store),
		pricing:      calculator,
		validate:     NewValidator(),
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		locks:        newKeyedMutex(),
		now:          time.Now,
		logger:       logger,
	}
}

// Availability exposes the checker the service uses.
func (s *BookingService) Availability() *AvailabilityChecker {
	return s.availability
}

// StayQuote answers whether a stay can be booked and what it would cost.
type StayQuote struct {
	PropertyID string    `json:"property_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Nights     int       `json:"nights"`
	Available  bool      `json:"available"`
	TotalPrice float64   `json:"total_price"`
}

// Quote checks availability and prices a stay without booking it. A positive
// guests count is checked against the property's capacity.
func (s *BookingService) Quote(ctx context.Context, propertyID string, checkIn, checkOut time.Time, guests int) (*StayQuote, error) {
	checkIn, checkOut = models.Day(checkIn), models.Day(checkOut)
	nights := models.Nights(checkIn, checkOut)
	if nights <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidRange, "check-out must be after check-in")
	}

	property, err := s.activeProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if guests > property.MaxGuests {
		return nil, domain.Errorf(domain.ErrCapacityExceeded,
			"property can accommodate maximum %d guests", property.MaxGuests)
	}

	available, err := s.availability.IsAvailable(ctx, property.ID, checkIn, checkOut, "")
	if err != nil {
		return nil, err
	}
	total, err := s.pricing.Quote(property, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return &StayQuote{
		PropertyID: property.ID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Nights:     nights,
		Available:  available,
		TotalPrice: total,
	}, nil
}

// CreateBooking places a pending booking for caller. The availability check
// and insert run under a per-property lock and inside a single storage
// transaction, so two overlapping requests cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, caller models.Identity, req models.NewBooking) (*models.BookingDetails, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	checkIn, checkOut := models.Day(req.CheckIn), models.Day(req.CheckOut)
	if models.Nights(checkIn, checkOut) <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidRange, "check-out must be after check-in")
	}

	property, err := s.activeProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, s.fail("create", err)
	}
	if req.Guests > property.MaxGuests {
		return nil, s.fail("create", domain.Errorf(domain.ErrCapacityExceeded,
			"property can accommodate maximum %d guests", property.MaxGuests))
	}

	unlock := s.locks.Lock(property.ID)
	defer unlock()

	available, err := s.availability.IsAvailable(ctx, property.ID, checkIn, checkOut, "")
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, s.fail("create", errUnavailable())
	}

	total, err := s.pricing.Quote(property, checkIn, checkOut)
	if err != nil {
		return nil, s.fail("create", err)
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		PropertyID:      property.ID,
		UserID:          caller.UserID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		TotalPrice:      total,
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentPending,
	}
	if err := s.store.CreateBookingIfAvailable(ctx, booking); err != nil {
		return nil, s.fail("create", err)
	}

	metrics.IncBooking("create", "ok")
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("property_id", property.ID).
		Str("user_id", caller.UserID).
		Float64("total_price", total).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, property, string(caller.Role))
	s.enqueueSync(ctx, booking, SyncTaskUpsert)

	return &models.BookingDetails{Booking: booking, Property: property}, nil
}

// GetBooking returns a booking readable by caller.
func (s *BookingService) GetBooking(ctx context.Context, caller models.Identity, id string) (*models.BookingDetails, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != caller.UserID && !caller.Role.CanReadAnyBooking() {
		return nil, domain.Errorf(domain.ErrForbidden, "you can only view your own bookings")
	}
	return s.withProperty(ctx, booking), nil
}

// ListUserBookings returns caller's bookings, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, caller models.Identity) ([]*models.BookingDetails, error) {
	bookings, err := s.store.ListUserBookings(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	properties := make(map[string]*models.Property)
	out := make([]*models.BookingDetails, 0, len(bookings))
	for _, b := range bookings {
		p, ok := properties[b.PropertyID]
		if !ok {
			p = s.lookupProperty(ctx, b.PropertyID)
			properties[b.PropertyID] = p
		}
		out = append(out, &models.BookingDetails{Booking: b, Property: p})
	}
	return out, nil
}

// ListBookingsByDateRange returns every booking touching [from, to].
func (s *BookingService) ListBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	if to.Before(from) {
		return nil, domain.Errorf(domain.ErrInvalidRange, "end date must not be before start date")
	}
	return s.store.ListBookingsByDateRange(ctx, from, to)
}

// UpdateBooking applies a partial update to a pending booking owned by caller.
// Moving the dates re-checks availability against other bookings and
// reprices the stay; changing the party size re-checks capacity.
func (s *BookingService) UpdateBooking(ctx context.Context, caller models.Identity, id string, patch models.BookingPatch) (*models.BookingDetails, error) {
	booking, unlock, err := s.lockBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if booking.UserID != caller.UserID {
		return nil, domain.Errorf(domain.ErrForbidden, "you can only update your own bookings")
	}
	switch booking.Status {
	case models.BookingPending:
	case models.BookingConfirmed:
		return nil, s.fail("update", domain.Errorf(domain.ErrInvalidState, "cannot modify confirmed booking"))
	case models.BookingCancelled, models.BookingCompleted:
		return nil, s.fail("update", domain.Errorf(domain.ErrInvalidState, "cannot modify %s booking", booking.Status))
	default:
		return nil, domain.Errorf(domain.ErrInvalidState, "unknown booking status %q", booking.Status)
	}

	// price is derived, never supplied
	patch.TotalPrice = models.Field[float64]{}
	if patch.Empty() {
		return s.withProperty(ctx, booking), nil
	}

	if g, ok := patch.Guests.Get(); ok && g < 1 {
		return nil, domain.Errorf(domain.ErrValidation, "guests must be at least 1")
	}
	checkIn := models.Day(patch.CheckIn.OrElse(booking.CheckIn))
	checkOut := models.Day(patch.CheckOut.OrElse(booking.CheckOut))
	if patch.DatesChanged() && models.Nights(checkIn, checkOut) <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidRange, "check-out must be after check-in")
	}

	property, err := s.store.GetProperty(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if g, ok := patch.Guests.Get(); ok && g > property.MaxGuests {
		return nil, s.fail("update", domain.Errorf(domain.ErrCapacityExceeded,
			"property can accommodate maximum %d guests", property.MaxGuests))
	}

	if patch.DatesChanged() {
		available, err := s.availability.IsAvailable(ctx, property.ID, checkIn, checkOut, booking.ID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, s.fail("update", errUnavailable())
		}
		total, err := s.pricing.Quote(property, checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		patch.CheckIn = models.Set(checkIn)
		patch.CheckOut = models.Set(checkOut)
		patch.TotalPrice = models.Set(total)
	}

	if err := s.store.UpdateBooking(ctx, booking.ID, patch); err != nil {
		return nil, err
	}
	updated, err := s.store.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	metrics.IncBooking("update", "ok")
	s.publishEvent(events.EventBookingUpdated, updated, property, string(caller.Role))
	s.enqueueSync(ctx, updated, SyncTaskUpsert)

	return &models.BookingDetails{Booking: updated, Property: property}, nil
}

// CancelBooking cancels a booking owned by caller. Cancelling twice is a
// no-op; completed stays cannot be cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, caller models.Identity, id string) (*models.Booking, error) {
	booking, unlock, err := s.lockBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if booking.UserID != caller.UserID {
		return nil, domain.Errorf(domain.ErrForbidden, "you can only cancel your own bookings")
	}

	payment := booking.PaymentStatus
	switch booking.Status {
	case models.BookingCancelled:
		return booking, nil
	case models.BookingCompleted:
		return nil, s.fail("cancel", domain.Errorf(domain.ErrInvalidState, "cannot cancel completed booking"))
	case models.BookingPending, models.BookingConfirmed:
		if payment == models.PaymentCompleted {
			payment = models.PaymentRefunded
		}
	default:
		return nil, domain.Errorf(domain.ErrInvalidState, "unknown booking status %q", booking.Status)
	}

	if err := s.store.UpdateBookingStatus(ctx, booking.ID, models.BookingCancelled, payment); err != nil {
		return nil, err
	}
	booking.Status = models.BookingCancelled
	booking.PaymentStatus = payment

	metrics.IncBooking("cancel", "ok")
	s.logger.Info().Str("booking_id", booking.ID).Str("user_id", caller.UserID).Msg("booking cancelled")
	s.publishEvent(events.EventBookingCancelled, booking, s.lookupProperty(ctx, booking.PropertyID), string(caller.Role))
	s.enqueueSync(ctx, booking, SyncTaskUpdateStatus)

	return booking, nil
}

// PayBooking settles a pending booking. There is no payment gateway: the
// booking is confirmed and marked paid immediately.
func (s *BookingService) PayBooking(ctx context.Context, caller models.Identity, id string) (*models.Booking, error) {
	booking, unlock, err := s.lockBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if booking.UserID != caller.UserID {
		return nil, domain.Errorf(domain.ErrForbidden, "you can only pay for your own bookings")
	}

	switch booking.Status {
	case models.BookingPending:
	case models.BookingConfirmed:
		return booking, nil
	case models.BookingCancelled, models.BookingCompleted:
		return nil, s.fail("pay", domain.Errorf(domain.ErrInvalidState, "cannot pay for %s booking", booking.Status))
	default:
		return nil, domain.Errorf(domain.ErrInvalidState, "unknown booking status %q", booking.Status)
	}

	if err := s.store.UpdateBookingStatus(ctx, booking.ID, models.BookingConfirmed, models.PaymentCompleted); err != nil {
		return nil, err
	}
	booking.Status = models.BookingConfirmed
	booking.PaymentStatus = models.PaymentCompleted

	metrics.IncBooking("pay", "ok")
	s.logger.Info().Str("booking_id", booking.ID).Float64("amount", booking.TotalPrice).Msg("payment processed")
	s.publishEvent(events.EventBookingPaid, booking, s.lookupProperty(ctx, booking.PropertyID), string(caller.Role))
	s.enqueueSync(ctx, booking, SyncTaskUpdateStatus)

	return booking, nil
}

// lockBooking holds the lock of the booking's property and returns the
// booking as read under it. Status transitions of one property never
// interleave.
func (s *BookingService) lockBooking(ctx context.Context, id string) (*models.Booking, func(), error) {
	current, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locks.Lock(current.PropertyID)
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return booking, unlock, nil
}

// CompleteFinishedBookings marks confirmed stays whose check-out day has
// passed as completed. It returns how many bookings moved.
func (s *BookingService) CompleteFinishedBookings(ctx context.Context) (int, error) {
	completed, err := s.store.CompleteFinishedBookings(ctx, models.Day(s.now()))
	if err != nil {
		return 0, err
	}
	for _, b := range completed {
		metrics.IncBooking("complete", "ok")
		s.publishEvent(events.EventBookingCompleted, b, nil, "system")
		s.enqueueSync(ctx, b, SyncTaskUpdateStatus)
	}
	if len(completed) > 0 {
		s.logger.Info().Int("count", len(completed)).Msg("stays marked completed")
	}
	return len(completed), nil
}

func (s *BookingService) activeProperty(ctx context.Context, id string) (*models.Property, error) {
	property, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "property not found or inactive")
		}
		return nil, err
	}
	if !property.IsActive {
		return nil, domain.Errorf(domain.ErrNotFound, "property not found or inactive")
	}
	return property, nil
}

func (s *BookingService) lookupProperty(ctx context.Context, id string) *models.Property {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("property_id", id).Msg("failed to load property for booking")
		}
		return nil
	}
	return p
}

func (s *BookingService) withProperty(ctx context.Context, b *models.Booking) *models.BookingDetails {
	return &models.BookingDetails{Booking: b, Property: s.lookupProperty(ctx, b.PropertyID)}
}

func errUnavailable() error {
	return domain.Errorf(domain.ErrConflict, "property is not available for the selected dates")
}

// fail counts a rejected operation by error kind and returns err unchanged.
func (s *BookingService) fail(operation string, err error) error {
	outcome := "error"
	switch k := domain.Kind(err); {
	case errors.Is(k, domain.ErrConflict):
		outcome = "conflict"
	case errors.Is(k, domain.ErrCapacityExceeded):
		outcome = "capacity_exceeded"
	case errors.Is(k, domain.ErrInvalidState):
		outcome = "invalid_state"
	case errors.Is(k, domain.ErrInvalidRange):
		outcome = "invalid_range"
	case errors.Is(k, domain.ErrNotFound):
		outcome = "not_found"
	}
	metrics.IncBooking(operation, outcome)
	return err
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, property *models.Property, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.NewBookingPayload(booking, property, changedBy)
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	snapshot := *booking
	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, &snapshot); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
