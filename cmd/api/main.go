package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holidayrent/internal/api"
	"holidayrent/internal/auth"
	"holidayrent/internal/config"
	"holidayrent/internal/database"
	"holidayrent/internal/docstore"
	"holidayrent/internal/domain"
	"holidayrent/internal/events"
	"holidayrent/internal/export"
	"holidayrent/internal/google"
	"holidayrent/internal/logging"
	"holidayrent/internal/metrics"
	"holidayrent/internal/notify"
	"holidayrent/internal/pricing"
	"holidayrent/internal/repository"
	"holidayrent/internal/scheduler"
	"holidayrent/internal/service"
	"holidayrent/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const sheetsWarmupInterval = 30 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	sessions := initSessions(redisClient, &logger)

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Warn().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})
	if publisher := initBroker(cfg, &logger); publisher != nil {
		defer publisher.Close()
		eventBus.Subscribe(publisher.Handle, events.BookingEvents...)
		eventBus.Subscribe(publisher.Handle, events.ReviewEvents...)
	}
	initTelegram(cfg, eventBus, &logger)

	sheetsService := initGoogleSheets(ctx, cfg, &logger)
	var sheetsWorker *worker.SheetsWorker
	if sheetsService != nil {
		sheetsWorker = worker.NewSheetsWorker(sheetsService, redisClient, worker.DefaultRetryPolicy, logging.Component(&logger, "sheets-worker"))
		go sheetsWorker.Start(ctx)
	}

	seasons, err := pricing.NewSeasonalRule(cfg.Pricing.Seasons)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	calculator := pricing.NewCalculator(store, seasons)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userService := service.NewUserService(store, sessions, issuer, cfg.Auth.SessionTTL, logging.Component(&logger, "users"))
	propertyService := service.NewPropertyService(store, cfg.Cache, logging.Component(&logger, "properties"))
	defer propertyService.Close()
	ratings := service.NewRatingAggregator(store, propertyService, logging.Component(&logger, "ratings"))
	reviewService := service.NewReviewService(store, ratings, eventBus, logging.Component(&logger, "reviews"))

	// a nil *SheetsWorker must not become a non-nil interface
	var syncWorker domain.SyncWorker
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
	}
	bookingService := service.NewBookingService(store, calculator, eventBus, syncWorker, logging.Component(&logger, "bookings"))

	if err := seedFromFile(ctx, userService, propertyService, store, &logger); err != nil {
		return err
	}

	sched, err := startScheduler(cfg, bookingService, sheetsService, &logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("scheduler shutdown")
		}
	}()

	deps := api.Dependencies{
		Users:      userService,
		Properties: propertyService,
		Bookings:   bookingService,
		Reviews:    reviewService,
		Accounts:   store,
		Auth:       auth.NewAuthenticator(issuer, sessions, store, logging.Component(&logger, "auth")),
		RateLimits: sessions,
		Exporter:   export.NewExporter(store, store, cfg.Exports.MaxRangeDays, logging.Component(&logger, "export")),
		Health: map[string]func(context.Context) error{
			"database": store.Ping,
		},
	}
	if sheetsService != nil {
		deps.Sheets = sheetsService
		deps.DeadLetters = sheetsWorker
	}
	if redisClient != nil {
		deps.Health["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}
	httpServer := api.NewHTTPServer(cfg.API, deps, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, bookingService, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "sqlite"))
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, err
		}
		return db, nil
	case config.DriverMongo:
		store, err := docstore.Connect(ctx, cfg.Database.Mongo, logging.Component(logger, "mongo"))
		if err != nil {
			logger.Error().Err(err).Msg("connect mongo")
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initSessions keeps sessions in Redis when it is up, falling back to
// process memory while it is not.
func initSessions(redisClient *redis.Client, logger *zerolog.Logger) domain.SessionStore {
	memory := repository.NewMemorySessionStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSessionStore(
		repository.NewRedisSessionStore(redisClient),
		memory,
		logging.Component(logger, "sessions"),
	)
}

func initBroker(cfg *config.Config, logger *zerolog.Logger) *events.AMQPPublisher {
	if cfg.Broker.URL == "" {
		return nil
	}
	publisher, err := events.DialAMQP(cfg.Broker.URL, cfg.Broker.Exchange, logging.Component(logger, "amqp"))
	if err != nil {
		logger.Warn().Err(err).Msg("broker unavailable, events stay in-process")
		return nil
	}
	logger.Info().Str("exchange", cfg.Broker.Exchange).Msg("broker connected")
	return publisher
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return
	}
	botAPI, err := notify.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	notify.NewTelegramNotifier(botAPI, cfg.Telegram.ChatID, logging.Component(logger, "telegram")).Subscribe(bus)
	logger.Info().Msg("telegram notifications enabled")
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startScheduler(
	cfg *config.Config,
	bookings *service.BookingService,
	sheetsService *google.SheetsService,
	logger *zerolog.Logger,
) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(logging.Component(logger, "scheduler"))
	if err != nil {
		return nil, err
	}

	if cfg.Scheduler.Enabled {
		if err := sched.AddCompletionSweep(bookings, cfg.Scheduler.CompletionSweepInterval); err != nil {
			return nil, err
		}
	}
	if cfg.Backup.Enabled && cfg.Database.Driver == config.DriverSQLite {
		backups := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
		if err := sched.AddBackup(backups, cfg.Backup.Interval); err != nil {
			return nil, err
		}
	}
	if sheetsService != nil {
		if err := sched.AddCacheWarmup("sheets-row-cache", sheetsService, sheetsWarmupInterval); err != nil {
			return nil, err
		}
	}

	sched.Start()
	logger.Info().Strs("jobs", sched.Jobs()).Msg("scheduler started")
	return sched, nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
