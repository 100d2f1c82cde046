package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"holidayrent/internal/auth"
	"holidayrent/internal/config"
	"holidayrent/internal/export"
	"holidayrent/internal/models"
	"holidayrent/internal/service"
	"holidayrent/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// UserLookup loads accounts for embedding owner details.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// SheetsResyncer rewrites the bookings spreadsheet.
type SheetsResyncer interface {
	ReplaceBookings(ctx context.Context, bookings []*models.Booking) error
}

// DeadLetterSource lists sheet writes that exhausted their retries.
type DeadLetterSource interface {
	DeadLetters(ctx context.Context) ([]worker.SyncTask, error)
}

// Dependencies are the components the HTTP API serves. Sheets, DeadLetters
// and Exporter are optional; their routes answer 404 when unset.
type Dependencies struct {
	Users       *service.UserService
	Properties  *service.PropertyService
	Bookings    *service.BookingService
	Reviews     *service.ReviewService
	Accounts    UserLookup
	Auth        *auth.Authenticator
	RateLimits  RateLimitStore
	Exporter    *export.Exporter
	Sheets      SheetsResyncer
	DeadLetters DeadLetterSource
	// Health checks run by /healthz, keyed by component name.
	Health map[string]func(ctx context.Context) error
}

// HTTPServer exposes the public REST API.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Dependencies
	engine *gin.Engine
	server *http.Server
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Dependencies, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	httpLogger := logger.With().Str("component", "http").Logger()

	engine := gin.New()
	engine.Use(
		requestIDMiddleware(),
		loggingMiddleware(&httpLogger),
		recoveryMiddleware(&httpLogger),
		metricsMiddleware(),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		ipRateLimitMiddleware(newRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)),
	)

	srv := &HTTPServer{cfg: cfg, deps: deps, engine: engine, logger: &httpLogger}
	srv.routes()

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", requestIDHeader)
	cc.ExposeHeaders = []string{requestIDHeader, "Content-Disposition"}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	return cors.New(cc)
}

func (s *HTTPServer) routes() {
	r := s.engine
	r.GET("/healthz", s.handleHealth)

	authed := authMiddleware(s.deps.Auth)
	writes := writeLimitMiddleware(s.deps.RateLimits, s.cfg.RateLimit.WritesPerMinute)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", authed, s.handleLogout)
	authGroup.GET("/profile", authed, s.handleGetProfile)
	authGroup.PUT("/profile", authed, s.handleUpdateProfile)

	props := api.Group("/properties")
	props.GET("", s.handleListProperties)
	props.GET("/search", s.handleSearchProperties)
	props.GET("/:id", s.handleGetProperty)
	props.GET("/:id/availability", s.handleAvailability)
	props.POST("", authed, s.handleCreateProperty)
	props.PUT("/:id", authed, s.handleUpdateProperty)
	props.PATCH("/:id", authed, s.handleUpdateProperty)
	props.DELETE("/:id", authed, s.handleDeleteProperty)
	props.GET("/:id/reviews", s.handleListReviews)
	props.POST("/:id/reviews", authed, writes, s.handleCreateReview)

	reviews := api.Group("/reviews")
	reviews.GET("/:id", s.handleGetReview)
	reviews.PUT("/:id", authed, writes, s.handleUpdateReview)
	reviews.DELETE("/:id", authed, writes, s.handleDeleteReview)

	bookings := api.Group("/bookings", authed)
	bookings.POST("", writes, s.handleCreateBooking)
	bookings.GET("", s.handleListBookings)
	bookings.GET("/:id", s.handleGetBooking)
	bookings.PUT("/:id", writes, s.handleUpdateBooking)
	bookings.PATCH("/:id", writes, s.handleUpdateBooking)
	bookings.DELETE("/:id", writes, s.handleCancelBooking)
	bookings.POST("/:id/payment", writes, s.handlePayBooking)

	admin := api.Group("/admin", authed, requireAdmin())
	admin.GET("/bookings/export", s.handleExportBookings)
	admin.POST("/sheets/resync", s.handleResyncSheets)
	admin.GET("/sheets/dead-letters", s.handleDeadLetters)
}

// Handler returns the root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.deps.Health {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
