package events

import (
	"encoding/json"
	"sync"
	"time"

	"holidayrent/internal/models"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
	EventBookingPaid      = "booking_paid"
	EventBookingCompleted = "booking_completed"

	EventReviewCreated = "review_created"
	EventReviewUpdated = "review_updated"
	EventReviewDeleted = "review_deleted"
)

// BookingEvents lists every booking event type.
var BookingEvents = []string{
	EventBookingCreated, EventBookingUpdated, EventBookingCancelled,
	EventBookingPaid, EventBookingCompleted,
}

// ReviewEvents lists every review event type.
var ReviewEvents = []string{EventReviewCreated, EventReviewUpdated, EventReviewDeleted}

// BookingEventPayload describes the booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID     string  `json:"booking_id"`
	PropertyID    string  `json:"property_id"`
	PropertyName  string  `json:"property_name,omitempty"`
	UserID        string  `json:"user_id"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	Guests        int     `json:"guests"`
	TotalPrice    float64 `json:"total_price"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	ChangedBy     string  `json:"changed_by,omitempty"`
}

// NewBookingPayload snapshots b. property may be nil.
func NewBookingPayload(b *models.Booking, property *models.Property, changedBy string) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:     b.ID,
		PropertyID:    b.PropertyID,
		UserID:        b.UserID,
		CheckIn:       models.FormatDate(b.CheckIn),
		CheckOut:      models.FormatDate(b.CheckOut),
		Guests:        b.Guests,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		ChangedBy:     changedBy,
	}
	if property != nil {
		p.PropertyName = property.Name
	}
	return p
}

type ReviewEventPayload struct {
	ReviewID   string `json:"review_id"`
	PropertyID string `json:"property_id"`
	UserID     string `json:"user_id"`
	Rating     int    `json:"rating"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	onError     func(event *Event, err error)
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets a hook called when a handler fails.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously; caller decides concurrency model.
	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
