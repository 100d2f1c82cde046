package service

import (
	"context"
	"sync"
	"time"

	"holidayrent/internal/domain"
)

// AvailabilityChecker answers whether a property is free for a stay.
type AvailabilityChecker struct {
	bookings domain.BookingRepository
}

func NewAvailabilityChecker(bookings domain.BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

// IsAvailable reports whether no pending or confirmed booking other than
// excludeBookingID overlaps [checkIn, checkOut]. Bounds are inclusive.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, propertyID string, checkIn, checkOut time.Time, excludeBookingID string) (bool, error) {
	conflict, err := c.bookings.FindConflictingBooking(ctx, propertyID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the lock for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
