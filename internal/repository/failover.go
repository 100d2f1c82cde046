package repository

import (
	"context"
	"sync/atomic"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionStore uses primary until it errors, then serves from
// fallback and retries primary once a minute.
type FailoverSessionStore struct {
	primary   domain.SessionStore
	fallback  domain.SessionStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSessionStore(primary, fallback domain.SessionStore, logger *zerolog.Logger) *FailoverSessionStore {
	return &FailoverSessionStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverSessionStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverSessionStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary session store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverSessionStore) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary session store recovered")
	}
}

func (r *FailoverSessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	if r.usePrimary() {
		err := r.primary.CreateSession(ctx, session)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.CreateSession(ctx, session)
}

// GetSession also consults fallback on a primary miss, so sessions created
// during an outage stay valid after recovery.
func (r *FailoverSessionStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, token)
		if err == nil {
			r.markUp()
			if session != nil {
				return session, nil
			}
		} else {
			r.markDown(err)
		}
	}
	return r.fallback.GetSession(ctx, token)
}

func (r *FailoverSessionStore) DeleteUserSessions(ctx context.Context, userID string) error {
	// fallback may hold sessions from an earlier outage
	fbErr := r.fallback.DeleteUserSessions(ctx, userID)
	if r.usePrimary() {
		err := r.primary.DeleteUserSessions(ctx, userID)
		if err == nil {
			r.markUp()
			return fbErr
		}
		r.markDown(err)
	}
	return fbErr
}

func (r *FailoverSessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
