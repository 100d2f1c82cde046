package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"holidayrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockStore) DeleteUserSessions(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverSessionStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		session := &models.Session{Token: "t1", UserID: "u1"}
		primary.On("GetSession", ctx, "t1").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "t1")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryMissChecksFallback", func(t *testing.T) {
		session := &models.Session{Token: "t2", UserID: "u1"}
		primary.On("GetSession", ctx, "t2").Return(nil, nil).Once()
		fallback.On("GetSession", ctx, "t2").Return(session, nil).Once()

		got, err := repo.GetSession(ctx, "t2")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.False(t, repo.isDown.Load())
		fallback.AssertExpectations(t)
	})

	t.Run("PrimaryFailure", func(t *testing.T) {
		primary.On("GetSession", ctx, "t3").Return(nil, errors.New("conn refused")).Once()
		fallback.On("GetSession", ctx, "t3").Return(nil, nil).Once()

		got, err := repo.GetSession(ctx, "t3")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		session := &models.Session{Token: "t4", UserID: "u4"}
		fallback.On("CreateSession", ctx, session).Return(nil).Once()

		assert.NoError(t, repo.CreateSession(ctx, session))
		primary.AssertNotCalled(t, "CreateSession", ctx, session)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(false, errors.New("still fail")).Once()
		fallback.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("Recovery", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		session := &models.Session{Token: "t5", UserID: "u5"}
		primary.On("CreateSession", ctx, session).Return(nil).Once()

		assert.NoError(t, repo.CreateSession(ctx, session))
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("CheckRateLimitSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "api:u9", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "api:u9", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertExpectations(t)
	})

	t.Run("DeleteClearsBoth", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("DeleteUserSessions", ctx, "u6").Return(nil).Once()
		primary.On("DeleteUserSessions", ctx, "u6").Return(nil).Once()

		assert.NoError(t, repo.DeleteUserSessions(ctx, "u6"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("DeleteUserSessions", ctx, "u7").Return(nil).Once()
		primary.On("DeleteUserSessions", ctx, "u7").Return(errors.New("fail")).Once()

		assert.NoError(t, repo.DeleteUserSessions(ctx, "u7"))
		assert.True(t, repo.isDown.Load())
	})

	t.Run("CreateFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		session := &models.Session{Token: "t8", UserID: "u8"}
		primary.On("CreateSession", ctx, session).Return(errors.New("fail")).Once()
		fallback.On("CreateSession", ctx, session).Return(nil).Once()

		assert.NoError(t, repo.CreateSession(ctx, session))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

func TestFailoverWithMemoryFallback(t *testing.T) {
	primary := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionStore(primary, NewMemorySessionStore(), &logger)
	ctx := context.Background()

	session := &models.Session{Token: "mem", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	primary.On("CreateSession", ctx, session).Return(errors.New("redis down")).Once()
	assert.NoError(t, repo.CreateSession(ctx, session))

	got, err := repo.GetSession(ctx, "mem")
	assert.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}
