// Package auth issues and verifies bearer credentials.
//
// A caller may present either a signed access token (JWT) or an opaque
// session token created at login. Both resolve to the same active user.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = domain.Errorf(domain.ErrUnauthorized, "could not validate credentials")

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewSessionToken returns a random URL-safe token.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token whose subject is the user id.
func (i *Issuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses token and returns its claims. Any failure is ErrUnauthorized.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, errInvalidCredentials
	}
	if claims.Subject == "" {
		return nil, errInvalidCredentials
	}
	return claims, nil
}

// Authenticator resolves a bearer token to the active user it belongs to.
type Authenticator struct {
	issuer   *Issuer
	sessions domain.SessionStore
	users    domain.UserRepository
	logger   *zerolog.Logger
}

func NewAuthenticator(issuer *Issuer, sessions domain.SessionStore, users domain.UserRepository, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{issuer: issuer, sessions: sessions, users: users, logger: logger}
}

// Resolve tries the token as a JWT first and then as a session token.
// Inactive users are rejected with ErrForbidden.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, errInvalidCredentials
	}

	var userID string
	if claims, err := a.issuer.Verify(token); err == nil {
		userID = claims.Subject
	} else {
		session, err := a.sessions.GetSession(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		if session == nil {
			return nil, errInvalidCredentials
		}
		userID = session.UserID
	}

	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		a.logger.Debug().Str("user_id", user.ID).Msg("inactive user rejected")
		return nil, domain.Errorf(domain.ErrForbidden, "inactive user")
	}
	return user, nil
}
