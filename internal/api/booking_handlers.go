package api

import (
	"net/http"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	PropertyID      string  `json:"property_id"`
	CheckIn         string  `json:"check_in"`
	CheckOut        string  `json:"check_out"`
	Guests          int     `json:"guests"`
	SpecialRequests *string `json:"special_requests"`
}

// updateBookingRequest leaves out total_price: the price is always derived.
type updateBookingRequest struct {
	CheckIn         models.Field[string]  `json:"check_in"`
	CheckOut        models.Field[string]  `json:"check_out"`
	Guests          models.Field[int]     `json:"guests"`
	SpecialRequests models.Field[*string] `json:"special_requests"`
}

func (r updateBookingRequest) patch() (models.BookingPatch, error) {
	var p models.BookingPatch
	if v, ok := r.CheckIn.Get(); ok {
		d, err := models.ParseDate(v)
		if err != nil {
			return p, domain.Errorf(domain.ErrValidation, "check_in: %s", err.Error())
		}
		p.CheckIn = models.Set(d)
	}
	if v, ok := r.CheckOut.Get(); ok {
		d, err := models.ParseDate(v)
		if err != nil {
			return p, domain.Errorf(domain.ErrValidation, "check_out: %s", err.Error())
		}
		p.CheckOut = models.Set(d)
	}
	p.Guests = r.Guests
	p.SpecialRequests = r.SpecialRequests
	return p, nil
}

type bookingResponse struct {
	*models.Booking
	CheckIn  string           `json:"check_in"`
	CheckOut string           `json:"check_out"`
	Nights   int              `json:"nights"`
	Property *models.Property `json:"property"`
}

func newBookingResponse(b *models.Booking, p *models.Property) bookingResponse {
	return bookingResponse{
		Booking:  b,
		CheckIn:  models.FormatDate(b.CheckIn),
		CheckOut: models.FormatDate(b.CheckOut),
		Nights:   b.Nights(),
		Property: p,
	}
}

func (s *HTTPServer) handleCreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.PropertyID == "" {
		badRequest(c, "property_id is required")
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}

	details, err := s.deps.Bookings.CreateBooking(c.Request.Context(), caller(c), models.NewBooking{
		PropertyID:      req.PropertyID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(details.Booking, details.Property))
}

func (s *HTTPServer) handleListBookings(c *gin.Context) {
	list, err := s.deps.Bookings.ListUserBookings(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]bookingResponse, 0, len(list))
	for _, d := range list {
		out = append(out, newBookingResponse(d.Booking, d.Property))
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) handleGetBooking(c *gin.Context) {
	d, err := s.deps.Bookings.GetBooking(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(d.Booking, d.Property))
}

func (s *HTTPServer) handleUpdateBooking(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	patch, err := req.patch()
	if err != nil {
		respondError(c, err)
		return
	}
	d, err := s.deps.Bookings.UpdateBooking(c.Request.Context(), caller(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(d.Booking, d.Property))
}

func (s *HTTPServer) handleCancelBooking(c *gin.Context) {
	b, err := s.deps.Bookings.CancelBooking(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Booking cancelled successfully",
		"booking_id":     b.ID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
	})
}

func (s *HTTPServer) handlePayBooking(c *gin.Context) {
	b, err := s.deps.Bookings.PayBooking(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Payment processed successfully",
		"booking_id":     b.ID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
	})
}
