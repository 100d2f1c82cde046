package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConflictingBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)
	existing := seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-10", models.BookingConfirmed)

	tests := []struct {
		name     string
		in, out  string
		exclude  string
		conflict bool
	}{
		{"Inside", "2024-06-03", "2024-06-05", "", true},
		{"Enclosing", "2024-05-20", "2024-06-20", "", true},
		{"BackToBackAfter", "2024-06-10", "2024-06-15", "", true},
		{"BackToBackBefore", "2024-05-25", "2024-06-01", "", true},
		{"Disjoint", "2024-06-11", "2024-06-15", "", false},
		{"ExcludedSelf", "2024-06-03", "2024-06-05", existing.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FindConflictingBooking(ctx, "p1", date(t, tt.in), date(t, tt.out), tt.exclude)
			require.NoError(t, err)
			if tt.conflict {
				require.NotNil(t, got)
				assert.Equal(t, existing.ID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}

	t.Run("OtherProperty", func(t *testing.T) {
		got, err := db.FindConflictingBooking(ctx, "p2", date(t, "2024-06-03"), date(t, "2024-06-05"), "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestInactiveBookingsDoNotBlock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)

	cancelled := seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-10", models.BookingPending)
	require.NoError(t, db.UpdateBookingStatus(ctx, cancelled.ID, models.BookingCancelled, models.PaymentPending))

	got, err := db.FindConflictingBooking(ctx, "p1", date(t, "2024-06-05"), date(t, "2024-06-07"), "")
	require.NoError(t, err)
	assert.Nil(t, got)

	seedBooking(t, db, "p1", "u2", "2024-06-05", "2024-06-07", models.BookingPending)
}

func TestCreateBookingIfAvailable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)

	first := seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-10", models.BookingPending)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &models.Booking{
		PropertyID:    "p1",
		UserID:        "u2",
		CheckIn:       date(t, "2024-06-10"),
		CheckOut:      date(t, "2024-06-15"),
		Guests:        2,
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
	}
	err := db.CreateBookingIfAvailable(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConflict)

	bookings, err := db.ListUserBookings(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestConcurrentBooking(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)

	checkIn, checkOut := date(t, "2024-07-01"), date(t, "2024-07-05")

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			results <- db.CreateBookingIfAvailable(ctx, &models.Booking{
				PropertyID:    "p1",
				UserID:        "u",
				CheckIn:       checkIn,
				CheckOut:      checkOut,
				Guests:        2,
				Status:        models.BookingPending,
				PaymentStatus: models.PaymentPending,
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, numGoroutines-1, conflicts)
}

func TestBookingUpdates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)
	b := seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-04", models.BookingPending)

	note := "crib please"
	require.NoError(t, db.UpdateBooking(ctx, b.ID, models.BookingPatch{
		CheckOut:        models.Set(date(t, "2024-06-06")),
		Guests:          models.Set(3),
		SpecialRequests: models.Set(&note),
		TotalPrice:      models.Set(500.0),
	}))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-06-01"), got.CheckIn)
	assert.Equal(t, date(t, "2024-06-06"), got.CheckOut)
	assert.Equal(t, 3, got.Guests)
	require.NotNil(t, got.SpecialRequests)
	assert.Equal(t, note, *got.SpecialRequests)
	assert.Equal(t, 500.0, got.TotalPrice)

	require.NoError(t, db.UpdateBooking(ctx, b.ID, models.BookingPatch{SpecialRequests: models.Set[*string](nil)}))
	got, err = db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SpecialRequests)
	assert.Equal(t, 3, got.Guests)

	require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.BookingConfirmed, models.PaymentCompleted))
	got, err = db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)

	_, err = db.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, db.UpdateBooking(ctx, "missing", models.BookingPatch{Guests: models.Set(1)}), domain.ErrNotFound)
}

func TestListUserBookingsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	db.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	older := seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-04", models.BookingPending)
	newer := seedBooking(t, db, "p1", "u1", "2024-07-01", "2024-07-04", models.BookingPending)
	seedBooking(t, db, "p1", "u2", "2024-08-01", "2024-08-04", models.BookingPending)

	got, err := db.ListUserBookings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestCompleteFinishedBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)

	past := seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-04", models.BookingPending)
	require.NoError(t, db.UpdateBookingStatus(ctx, past.ID, models.BookingConfirmed, models.PaymentCompleted))
	pendingPast := seedBooking(t, db, "p1", "u2", "2024-06-10", "2024-06-12", models.BookingPending)
	future := seedBooking(t, db, "p1", "u3", "2024-09-01", "2024-09-04", models.BookingPending)
	require.NoError(t, db.UpdateBookingStatus(ctx, future.ID, models.BookingConfirmed, models.PaymentCompleted))

	done, err := db.CompleteFinishedBookings(ctx, date(t, "2024-08-01"))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, past.ID, done[0].ID)
	assert.Equal(t, models.BookingCompleted, done[0].Status)

	for id, want := range map[string]models.BookingStatus{
		past.ID:        models.BookingCompleted,
		pendingPast.ID: models.BookingPending,
		future.ID:      models.BookingConfirmed,
	} {
		got, err := db.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	completed, err := db.FindCompletedBooking(ctx, "u1", "p1")
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, past.ID, completed.ID)

	none, err := db.FindCompletedBooking(ctx, "u2", "p1")
	require.NoError(t, err)
	assert.Nil(t, none)

	again, err := db.CompleteFinishedBookings(ctx, date(t, "2024-08-01"))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestBookedPropertyIDsAndRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "p1", 4, 100)
	seedProperty(t, db, "p2", 4, 100)
	seedBooking(t, db, "p1", "u1", "2024-06-01", "2024-06-10", models.BookingPending)
	cancelled := seedBooking(t, db, "p2", "u1", "2024-06-01", "2024-06-10", models.BookingPending)
	require.NoError(t, db.UpdateBookingStatus(ctx, cancelled.ID, models.BookingCancelled, models.PaymentPending))

	ids, err := db.BookedPropertyIDs(ctx, date(t, "2024-06-05"), date(t, "2024-06-06"))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	inRange, err := db.ListBookingsByDateRange(ctx, date(t, "2024-06-01"), date(t, "2024-06-30"))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	outside, err := db.ListBookingsByDateRange(ctx, date(t, "2024-07-01"), date(t, "2024-07-31"))
	require.NoError(t, err)
	assert.Empty(t, outside)
}
