package models

import "time"

type Booking struct {
	ID              string        `json:"id" bson:"id"`
	PropertyID      string        `json:"property_id" bson:"property_id"`
	UserID          string        `json:"user_id" bson:"user_id"`
	CheckIn         time.Time     `json:"check_in" bson:"check_in"`
	CheckOut        time.Time     `json:"check_out" bson:"check_out"`
	Guests          int           `json:"guests" bson:"guests"`
	SpecialRequests *string       `json:"special_requests" bson:"special_requests"`
	TotalPrice      float64       `json:"total_price" bson:"total_price"`
	Status          BookingStatus `json:"status" bson:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status" bson:"payment_status"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
}

// Nights is the length of the stay.
func (b *Booking) Nights() int {
	return Nights(b.CheckIn, b.CheckOut)
}

// NewBooking is the input for a booking request.
type NewBooking struct {
	PropertyID      string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	Guests          int       `validate:"gte=1"`
	SpecialRequests *string
}

// BookingPatch carries a partial booking update. TotalPrice is filled in by
// the booking service when the dates move and is never taken from callers.
type BookingPatch struct {
	CheckIn         Field[time.Time]
	CheckOut        Field[time.Time]
	Guests          Field[int]
	SpecialRequests Field[*string]
	TotalPrice      Field[float64]
}

// Empty reports whether the patch changes nothing.
func (p BookingPatch) Empty() bool {
	return !p.CheckIn.IsSet() && !p.CheckOut.IsSet() && !p.Guests.IsSet() &&
		!p.SpecialRequests.IsSet() && !p.TotalPrice.IsSet()
}

// DatesChanged reports whether either end of the stay is being moved.
func (p BookingPatch) DatesChanged() bool {
	return p.CheckIn.IsSet() || p.CheckOut.IsSet()
}

// BookingDetails is a booking together with a snapshot of its property.
type BookingDetails struct {
	Booking  *Booking
	Property *Property
}
