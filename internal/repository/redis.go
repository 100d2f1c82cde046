package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"holidayrent/internal/config"
	"holidayrent/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps login sessions and rate-limit counters in Redis.
// Each session is a JSON value expiring with the session; a per-user set
// indexes a user's tokens for logout.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func sessionKey(token string) string   { return "session:" + token }
func userSessionsKey(id string) string { return "user_sessions:" + id }
func rateLimitKey(key string) string   { return "rate_limit:" + key }

func (r *RedisSessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.Token), data, ttl)
		pipe.SAdd(ctx, userSessionsKey(session.UserID), session.Token)
		pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Expired(r.now()) {
		return nil, nil
	}
	return &session, nil
}

func (r *RedisSessionStore) DeleteUserSessions(ctx context.Context, userID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	tokens, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts a hit against key in a fixed window and reports
// whether the caller is still within limit.
func (r *RedisSessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	k := rateLimitKey(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, k, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
