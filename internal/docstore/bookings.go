package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// bookingLock is an advisory per-property lock document. It serialises the
// check-then-insert of CreateBookingIfAvailable across processes.
type bookingLock struct {
	PropertyID string    `bson:"_id"`
	ExpiresAt  time.Time `bson:"expires_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

// lockProperty blocks until the property's lock is taken or ctx ends. A lock
// left behind by a crashed holder is reclaimed once it expires.
func (s *Store) lockProperty(ctx context.Context, propertyID string) (func(), error) {
	for {
		now := s.now()
		if _, err := s.locks.DeleteOne(ctx, bson.M{"_id": propertyID, "expires_at": bson.M{"$lt": now}}); err != nil {
			return nil, fmt.Errorf("failed to reclaim booking lock: %w", err)
		}

		_, err := s.locks.InsertOne(ctx, bookingLock{PropertyID: propertyID, ExpiresAt: now.Add(s.lockTTL), CreatedAt: now})
		if err == nil {
			return func() {
				if _, err := s.locks.DeleteOne(context.Background(), bson.M{"_id": propertyID}); err != nil {
					s.logger.Error().Err(err).Str("property_id", propertyID).Msg("Failed to release booking lock")
				}
			}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to take booking lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.lockRetry):
		}
	}
}

func (s *Store) FindConflictingBooking(ctx context.Context, propertyID string, checkIn, checkOut time.Time, excludeBookingID string) (*models.Booking, error) {
	var b models.Booking
	err := s.bookings.FindOne(ctx, conflictFilter(propertyID, checkIn, checkOut, excludeBookingID)).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	return &b, nil
}

func (s *Store) CreateBookingIfAvailable(ctx context.Context, booking *models.Booking) error {
	unlock, err := s.lockProperty(ctx, booking.PropertyID)
	if err != nil {
		return err
	}
	defer unlock()

	conflict, err := s.FindConflictingBooking(ctx, booking.PropertyID, booking.CheckIn, booking.CheckOut, "")
	if err != nil {
		return err
	}
	if conflict != nil {
		return domain.Errorf(domain.ErrConflict, "property is not available for the selected dates")
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.CheckIn = models.Day(booking.CheckIn)
	booking.CheckOut = models.Day(booking.CheckOut)
	now := s.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := s.bookings.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := findOne(ctx, s.bookings, bson.M{"id": id}, &b, "booking"); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: 1}})
	out, err := findAll[models.Booking](ctx, s.bookings, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	return out, nil
}

func (s *Store) ListBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}, {Key: "id", Value: 1}})
	out, err := findAll[models.Booking](ctx, s.bookings, overlapFilter(from, to), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) error {
	return s.updateByID(ctx, s.bookings, id, bookingSet(patch), "booking")
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus, payment models.PaymentStatus) error {
	return s.updateByID(ctx, s.bookings, id, bson.M{
		"status":         string(status),
		"payment_status": string(payment),
	}, "booking")
}

func (s *Store) FindCompletedBooking(ctx context.Context, userID, propertyID string) (*models.Booking, error) {
	var b models.Booking
	err := s.bookings.FindOne(ctx,
		bson.M{"user_id": userID, "property_id": propertyID, "status": string(models.BookingCompleted)},
		options.FindOne().SetSort(bson.D{{Key: "check_out", Value: -1}}),
	).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find completed booking: %w", err)
	}
	return &b, nil
}

func (s *Store) CompleteFinishedBookings(ctx context.Context, before time.Time) ([]*models.Booking, error) {
	filter := bson.M{
		"status":    string(models.BookingConfirmed),
		"check_out": bson.M{"$lt": models.Day(before)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "check_out", Value: 1}, {Key: "id", Value: 1}})
	finished, err := findAll[models.Booking](ctx, s.bookings, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to select finished bookings: %w", err)
	}
	if len(finished) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(finished))
	for _, b := range finished {
		ids = append(ids, b.ID)
	}
	// only the bookings selected above, and only if still confirmed
	filter["id"] = bson.M{"$in": ids}
	now := s.now()
	_, err = s.bookings.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":     string(models.BookingCompleted),
		"updated_at": now,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to complete bookings: %w", err)
	}

	for _, b := range finished {
		b.Status = models.BookingCompleted
		b.UpdatedAt = now
	}
	return finished, nil
}

func (s *Store) BookedPropertyIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
	filter := overlapFilter(checkIn, checkOut)
	filter["status"] = bson.M{"$in": activeStatuses}

	raw, err := s.bookings.Distinct(ctx, "property_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked properties: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
