package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/metrics"
	"holidayrent/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	callerKey       = "caller"
)

// TokenResolver turns a bearer token into an active user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// RateLimitStore counts hits per key in a fixed window.
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware attaches a request-scoped logger and logs each request.
func loggingMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With().Str("request_id", c.GetString("request_id")).Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		event := reqLogger.Info()
		if status >= http.StatusInternalServerError {
			event = reqLogger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Int("status", status).
			Str("remote", c.ClientIP()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

func recoveryMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Str("panic", fmt.Sprint(recovered)).Str("path", c.Request.URL.Path).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"})
	})
}

// ipRateLimitMiddleware throttles every request by client address.
func ipRateLimitMiddleware(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}

// authMiddleware requires a valid bearer token and stores the caller.
func authMiddleware(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			respondError(c, domain.Errorf(domain.ErrUnauthorized, "not authenticated"))
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(callerKey, user)
		c.Next()
	}
}

// writeLimitMiddleware caps mutations per authenticated user per minute.
// Store failures let the request through.
func writeLimitMiddleware(store RateLimitStore, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || perMinute <= 0 {
			c.Next()
			return
		}
		user := currentUser(c)
		if user == nil {
			c.Next()
			return
		}
		allowed, err := store.CheckRateLimit(c.Request.Context(), "writes:"+user.ID, perMinute, time.Minute)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("rate limit check failed")
		}
		if err == nil && !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: "too many requests", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := currentUser(c); user == nil || user.Role != models.RoleAdmin {
			respondError(c, domain.Errorf(domain.ErrForbidden, "admin access required"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func caller(c *gin.Context) models.Identity {
	if user := currentUser(c); user != nil {
		return user.Identity()
	}
	return models.Identity{}
}
