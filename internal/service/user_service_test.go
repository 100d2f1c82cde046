package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"holidayrent/internal/auth"
	"holidayrent/internal/database"
	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) CreateSession(ctx context.Context, s *models.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSessions) GetSession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockSessions) DeleteUserSessions(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockSessions) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func newUserService(t *testing.T) (*UserService, *database.DB, *mockSessions) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := new(mockSessions)
	svc := NewUserService(db, sessions, auth.NewIssuer("test-secret", time.Hour), 2*time.Hour, &logger)
	return svc, db, sessions
}

func registration(email string) models.NewUser {
	return models.NewUser{Email: email, Password: "correct-horse", FirstName: "Camille", LastName: "Durand"}
}

func TestRegister(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registration("  Camille@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "camille@example.com", u.Email)
	assert.Equal(t, models.RoleGuest, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "correct-horse"))

	_, err = svc.Register(ctx, registration("camille@example.com"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "email already registered", domain.Message(err))

	short := registration("short@example.com")
	short.Password = "abc"
	_, err = svc.Register(ctx, short)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Register(ctx, registration("not-an-email"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	selfAdmin := registration("root@example.com")
	selfAdmin.Role = models.RoleAdmin
	_, err = svc.Register(ctx, selfAdmin)
	assert.ErrorIs(t, err, domain.ErrValidation)

	host := registration("host@example.com")
	host.Role = models.RoleOwner
	u, err = svc.Register(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, u.Role)

	u, err = svc.Provision(ctx, registration("ops@example.com"), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestRegisterStorageFailureIsOpaque(t *testing.T) {
	svc, db, _ := newUserService(t)
	require.NoError(t, db.Close())

	_, err := svc.Register(context.Background(), registration("a@example.com"))
	assert.ErrorIs(t, err, ErrCreateUser)
	assert.Nil(t, domain.Kind(err))
}

func TestLoginLogout(t *testing.T) {
	svc, _, sessions := newUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registration("camille@example.com"))
	require.NoError(t, err)

	sessions.On("CreateSession", ctx, mock.MatchedBy(func(s *models.Session) bool {
		return s.UserID == u.ID && s.Token != "" && s.ExpiresAt.Sub(s.CreatedAt) == 2*time.Hour
	})).Return(nil).Once()

	res, err := svc.Login(ctx, "CAMILLE@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.SessionToken)
	assert.Equal(t, u.ID, res.User.ID)
	sessions.AssertExpectations(t)

	_, err = svc.Login(ctx, "camille@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	sessions.On("CreateSession", ctx, mock.Anything).Return(errors.New("redis down")).Once()
	_, err = svc.Login(ctx, "camille@example.com", "correct-horse")
	assert.Error(t, err)

	sessions.On("DeleteUserSessions", ctx, u.ID).Return(nil).Once()
	require.NoError(t, svc.Logout(ctx, u.Identity()))
	sessions.AssertExpectations(t)
}

func TestProfile(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registration("camille@example.com"))
	require.NoError(t, err)
	caller := u.Identity()

	got, err := svc.Profile(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "Camille", got.FirstName)

	phone := "+33 1 23 45 67 89"
	got, err = svc.UpdateProfile(ctx, caller, models.ProfilePatch{LastName: models.Set("Moreau"), Phone: models.Set(&phone)})
	require.NoError(t, err)
	assert.Equal(t, "Moreau", got.LastName)
	require.NotNil(t, got.Phone)
	assert.Equal(t, phone, *got.Phone)

	_, err = svc.UpdateProfile(ctx, caller, models.ProfilePatch{FirstName: models.Set("  ")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err = svc.UpdateProfile(ctx, caller, models.ProfilePatch{})
	require.NoError(t, err)
	assert.Equal(t, "Moreau", got.LastName)
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()
	err := v.Struct(models.NewReview{Rating: 9, Content: "x"})
	require.ErrorIs(t, err, domain.ErrValidation)
	msg := domain.Message(err)
	assert.Contains(t, msg, "Rating must be at most 5")
	assert.Contains(t, msg, "Title is required")
}
