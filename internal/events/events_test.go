package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"holidayrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int
	bus.Subscribe(func(event *Event) error {
		received = event
		callCount++
		return nil
	}, "test_event")

	require.NoError(t, bus.PublishJSON("test_event", map[string]string{"foo": "bar"}))
	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, "test_event", received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, "bar", decoded["foo"])
}

func TestEventBusMultipleTypesAndSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(func(_ *Event) error { count1++; return nil }, BookingEvents...)
	bus.Subscribe(func(_ *Event) error { count2++; return nil }, EventBookingCreated)

	bus.Publish(&Event{Type: EventBookingCreated})
	bus.Publish(&Event{Type: EventBookingPaid})
	bus.Publish(&Event{Type: EventReviewCreated})

	assert.Equal(t, 2, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var failed []string
	bus.OnError(func(e *Event, err error) { failed = append(failed, e.Type+": "+err.Error()) })

	var secondCalled bool
	bus.Subscribe(func(_ *Event) error { return errors.New("boom") }, "x")
	bus.Subscribe(func(_ *Event) error { secondCalled = true; return nil }, "x")

	bus.Publish(&Event{Type: "x"})
	assert.True(t, secondCalled)
	assert.Equal(t, []string{"x: boom"}, failed)
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON("x", nil))
}

func TestNewBookingPayload(t *testing.T) {
	in, _ := models.ParseDate("2024-06-01")
	out, _ := models.ParseDate("2024-06-04")
	b := &models.Booking{
		ID: "b1", PropertyID: "p1", UserID: "u1", CheckIn: in, CheckOut: out,
		Guests: 2, TotalPrice: 300, Status: models.BookingPending, PaymentStatus: models.PaymentPending,
	}

	p := NewBookingPayload(b, &models.Property{Name: "Mas"}, "guest")
	assert.Equal(t, "2024-06-01", p.CheckIn)
	assert.Equal(t, "2024-06-04", p.CheckOut)
	assert.Equal(t, "Mas", p.PropertyName)
	assert.Equal(t, "pending", p.Status)

	assert.Empty(t, NewBookingPayload(b, nil, "").PropertyName)
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *mockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestAMQPPublisher(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("PublishesByRoutingKey", func(t *testing.T) {
		ch := new(mockChannel)
		ch.On("ExchangeDeclare", "holidayrent.events", amqp.ExchangeTopic, true).Return(nil)
		ch.On("Publish", "holidayrent.events", EventBookingCreated, mock.MatchedBy(func(msg amqp.Publishing) bool {
			return msg.ContentType == "application/json" && string(msg.Body) == `{"a":1}` && msg.Type == EventBookingCreated
		})).Return(nil)

		p, err := NewAMQPPublisher(ch, "holidayrent.events", &logger)
		require.NoError(t, err)

		bus := NewEventBus()
		bus.Subscribe(p.Handle, BookingEvents...)
		bus.Publish(&Event{Type: EventBookingCreated, Payload: []byte(`{"a":1}`), CreatedAt: time.Now()})
		ch.AssertExpectations(t)
	})

	t.Run("DeclareFailureClosesChannel", func(t *testing.T) {
		ch := new(mockChannel)
		ch.On("ExchangeDeclare", "ex", amqp.ExchangeTopic, true).Return(errors.New("denied"))
		ch.On("Close").Return(nil)

		_, err := NewAMQPPublisher(ch, "ex", &logger)
		assert.Error(t, err)
		ch.AssertCalled(t, "Close")
	})

	t.Run("PublishError", func(t *testing.T) {
		ch := new(mockChannel)
		ch.On("ExchangeDeclare", "ex", amqp.ExchangeTopic, true).Return(nil)
		ch.On("Publish", "ex", "x", mock.Anything).Return(errors.New("closed"))

		p, err := NewAMQPPublisher(ch, "ex", &logger)
		require.NoError(t, err)
		assert.Error(t, p.Handle(&Event{Type: "x"}))
	})
}
