package domain

import (
	"context"
	"time"

	"holidayrent/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PropertyRepository interface {
	CreateProperty(ctx context.Context, property *models.Property) error
	// GetProperty returns ErrNotFound for unknown ids. Inactive properties are returned.
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error)
	CountProperties(ctx context.Context, filter models.PropertyFilter) (int, error)
	UpdateProperty(ctx context.Context, id string, patch models.PropertyPatch) error
	DeactivateProperty(ctx context.Context, id string) error
	SetPropertyRating(ctx context.Context, id string, rating models.RatingAggregate) error
}

type BookingRepository interface {
	// FindConflictingBooking returns the first pending or confirmed booking on
	// propertyID overlapping [checkIn, checkOut], or nil when the dates are free.
	FindConflictingBooking(ctx context.Context, propertyID string, checkIn, checkOut time.Time, excludeBookingID string) (*models.Booking, error)
	// CreateBookingIfAvailable repeats the conflict check and inserts atomically.
	// It returns ErrConflict when the dates were taken in the meantime.
	CreateBookingIfAvailable(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	ListBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) error
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus, payment models.PaymentStatus) error
	FindCompletedBooking(ctx context.Context, userID, propertyID string) (*models.Booking, error)
	// CompleteFinishedBookings moves confirmed bookings that checked out before
	// the given day to completed and returns them.
	CompleteFinishedBookings(ctx context.Context, before time.Time) ([]*models.Booking, error)
	BookedPropertyIDs(ctx context.Context, checkIn, checkOut time.Time) ([]string, error)
}

type ReviewRepository interface {
	// CreateReview returns ErrConflict when the user already reviewed the property.
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id string) (*models.Review, error)
	FindUserReview(ctx context.Context, userID, propertyID string) (*models.Review, error)
	ListPropertyReviews(ctx context.Context, propertyID string, skip, limit int) ([]*models.Review, error)
	UpdateReview(ctx context.Context, id string, patch models.ReviewPatch) error
	DeleteReview(ctx context.Context, id string) error
	// AggregateRatings returns the unrounded mean and count of ratings.
	AggregateRatings(ctx context.Context, propertyID string) (avg float64, count int, err error)
}

type UserRepository interface {
	// CreateUser returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, patch models.ProfilePatch) error
}

// Store is a complete storage backend. It is created once at startup and
// passed to every component that needs it.
type Store interface {
	PropertyRepository
	BookingRepository
	ReviewRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	// GetSession returns nil without error for unknown or expired tokens.
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteUserSessions(ctx context.Context, userID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, payment models.PaymentStatus) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}
