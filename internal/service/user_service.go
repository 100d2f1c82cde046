package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"holidayrent/internal/auth"
	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
)

// ErrCreateUser hides unexpected registration failures from callers.
var ErrCreateUser = errors.New("failed to create user")

type UserService struct {
	users      domain.UserRepository
	sessions   domain.SessionStore
	issuer     *auth.Issuer
	sessionTTL time.Duration
	validate   *Validator
	now        func() time.Time
	logger     *zerolog.Logger
}

func NewUserService(users domain.UserRepository, sessions domain.SessionStore, issuer *auth.Issuer, sessionTTL time.Duration, logger *zerolog.Logger) *UserService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &UserService{
		users:      users,
		sessions:   sessions,
		issuer:     issuer,
		sessionTTL: sessionTTL,
		validate:   NewValidator(),
		now:        time.Now,
		logger:     logger,
	}
}

// Register creates a guest or owner account.
func (s *UserService) Register(ctx context.Context, in models.NewUser) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleGuest
	}
	return s.Provision(ctx, in, role)
}

// Provision creates an account with any role. Registration goes through
// Register; this is for seeding and administration.
func (s *UserService) Provision(ctx context.Context, in models.NewUser, role models.Role) (*models.User, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "%s", err.Error())
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("password hashing failed")
		return nil, ErrCreateUser
	}

	user := &models.User{
		Email:        normalizeEmail(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Errorf(domain.ErrConflict, "email already registered")
		}
		s.logger.Error().Err(err).Msg("user creation failed")
		return nil, ErrCreateUser
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return user, nil
}

// Login checks credentials and issues an access token plus a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	badCredentials := domain.Errorf(domain.ErrUnauthorized, "incorrect email or password")

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, badCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, badCredentials
	}
	if !user.IsActive {
		return nil, domain.Errorf(domain.ErrForbidden, "inactive user")
	}

	token, expires, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	sessionToken, err := auth.NewSessionToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &models.Session{
		Token:     sessionToken,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.LoginResult{
		AccessToken:  token,
		SessionToken: sessionToken,
		ExpiresAt:    expires,
		User:         user,
	}, nil
}

// Logout drops every session token of caller. Access tokens stay valid
// until they expire.
func (s *UserService) Logout(ctx context.Context, caller models.Identity) error {
	return s.sessions.DeleteUserSessions(ctx, caller.UserID)
}

func (s *UserService) Profile(ctx context.Context, caller models.Identity) (*models.User, error) {
	return s.users.GetUserByID(ctx, caller.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, caller models.Identity, patch models.ProfilePatch) (*models.User, error) {
	if v, ok := patch.FirstName.Get(); ok && strings.TrimSpace(v) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "first_name must not be empty")
	}
	if v, ok := patch.LastName.Get(); ok && strings.TrimSpace(v) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "last_name must not be empty")
	}
	if !patch.Empty() {
		if err := s.users.UpdateUserProfile(ctx, caller.UserID, patch); err != nil {
			return nil, err
		}
	}
	return s.users.GetUserByID(ctx, caller.UserID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
