package models

import "time"

type User struct {
	ID           string    `json:"id" bson:"id"`
	Email        string    `json:"email" bson:"email"`
	FirstName    string    `json:"first_name" bson:"first_name"`
	LastName     string    `json:"last_name" bson:"last_name"`
	Phone        *string   `json:"phone" bson:"phone"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID string
	Role   Role
}

// Identity returns the caller identity of u.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Role: u.Role}
}

// NewUser is the registration input.
type NewUser struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone"`
	Role      Role    `json:"role" validate:"omitempty,oneof=guest owner"`
}

// ProfilePatch carries a partial profile update.
type ProfilePatch struct {
	FirstName Field[string]  `json:"first_name"`
	LastName  Field[string]  `json:"last_name"`
	Phone     Field[*string] `json:"phone"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return !p.FirstName.IsSet() && !p.LastName.IsSet() && !p.Phone.IsSet()
}

// Session is an opaque login token persisted alongside the JWT.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken  string
	SessionToken string
	ExpiresAt    time.Time
	User         *User
}
