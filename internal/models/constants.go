package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleGuest Role = "guest"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// ParseRole validates a stored or submitted role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleGuest, RoleOwner, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanReadAnyBooking reports whether the role may read bookings it does not own.
func (r Role) CanReadAnyBooking() bool {
	switch r {
	case RoleOwner, RoleAdmin:
		return true
	case RoleGuest:
		return false
	default:
		return false
	}
}

// CanDeleteAnyReview reports whether the role may remove reviews it did not write.
func (r Role) CanDeleteAnyReview() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleOwner, RoleGuest:
		return false
	default:
		return false
	}
}

// CanListProperties reports whether the role may create property listings.
func (r Role) CanListProperties() bool {
	switch r {
	case RoleOwner, RoleAdmin:
		return true
	case RoleGuest:
		return false
	default:
		return false
	}
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// ParseBookingStatus validates a stored status.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// BlocksCalendar reports whether a booking in this status occupies its dates.
func (s BookingStatus) BlocksCalendar() bool {
	switch s {
	case BookingPending, BookingConfirmed:
		return true
	case BookingCancelled, BookingCompleted:
		return false
	default:
		return false
	}
}

// CanTransitionTo encodes the booking state machine:
// pending -> confirmed -> completed, pending|confirmed -> cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	case BookingCancelled, BookingCompleted:
		return false
	default:
		return false
	}
}

// ActiveBookingStatuses lists the statuses that block a property's calendar.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// PaymentStatus tracks settlement of a booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// ParsePaymentStatus validates a stored payment status.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return st, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", s)
	}
}

// PropertyType classifies a listing.
type PropertyType string

const (
	PropertyVilla     PropertyType = "villa"
	PropertyChateau   PropertyType = "chateau"
	PropertyCottage   PropertyType = "cottage"
	PropertyApartment PropertyType = "apartment"
	PropertyFarmhouse PropertyType = "farmhouse"
)

// ParsePropertyType validates a submitted property type.
func ParsePropertyType(s string) (PropertyType, error) {
	switch t := PropertyType(s); t {
	case PropertyVilla, PropertyChateau, PropertyCottage, PropertyApartment, PropertyFarmhouse:
		return t, nil
	default:
		return "", fmt.Errorf("unknown property type %q", s)
	}
}

const (
	// DateLayout is the wire and storage format of calendar dates.
	DateLayout = "2006-01-02"

	DefaultPageSize = 20
	MaxPageSize     = 100

	DefaultCountry = "France"

	MinRating = 1
	MaxRating = 5
)
