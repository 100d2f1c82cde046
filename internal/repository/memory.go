package repository

import (
	"context"
	"sync"
	"time"

	"holidayrent/internal/models"
)

// MemorySessionStore is the in-process session store used when Redis is
// not configured or unavailable. Its contents do not survive a restart.
type MemorySessionStore struct {
	sessions sync.Map

	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry

	now func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemorySessionStore) CreateSession(_ context.Context, session *models.Session) error {
	s := *session
	r.sessions.Store(session.Token, &s)
	return nil
}

func (r *MemorySessionStore) GetSession(_ context.Context, token string) (*models.Session, error) {
	val, ok := r.sessions.Load(token)
	if !ok {
		return nil, nil
	}
	s := val.(*models.Session)
	if s.Expired(r.now()) {
		r.sessions.Delete(token)
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemorySessionStore) DeleteUserSessions(_ context.Context, userID string) error {
	r.sessions.Range(func(key, val any) bool {
		if val.(*models.Session).UserID == userID {
			r.sessions.Delete(key)
		}
		return true
	})
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
