// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// BookingCompleter moves finished stays to completed.
type BookingCompleter interface {
	CompleteFinishedBookings(ctx context.Context) (int, error)
}

// BackupRunner snapshots the database.
type BackupRunner interface {
	Run(ctx context.Context) error
}

// CacheWarmer refreshes a lookup cache, e.g. sheet row positions.
type CacheWarmer interface {
	WarmUpCache(ctx context.Context) error
}

type Scheduler struct {
	inner  gocron.Scheduler
	logger *zerolog.Logger
}

func New(logger *zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Scheduler{inner: s, logger: logger}, nil
}

// Every registers fn to run every interval, starting immediately. A run still
// in progress when the next one is due delays it.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	logger := s.logger.With().Str("job", name).Logger()
	_, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			start := time.Now()
			if err := fn(ctx); err != nil {
				logger.Error().Err(err).Msg("scheduled job failed")
				return
			}
			logger.Debug().Dur("took", time.Since(start)).Msg("scheduled job finished")
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	return nil
}

// AddCompletionSweep transitions confirmed bookings whose check-out passed.
func (s *Scheduler) AddCompletionSweep(completer BookingCompleter, interval time.Duration) error {
	return s.Every("complete-finished-bookings", interval, func(ctx context.Context) error {
		n, err := completer.CompleteFinishedBookings(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info().Int("count", n).Msg("bookings completed")
		}
		return nil
	})
}

func (s *Scheduler) AddBackup(backup BackupRunner, interval time.Duration) error {
	return s.Every("database-backup", interval, backup.Run)
}

func (s *Scheduler) AddCacheWarmup(name string, warmer CacheWarmer, interval time.Duration) error {
	return s.Every(name, interval, warmer.WarmUpCache)
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	jobs := s.inner.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.inner.Start()
	s.logger.Info().Strs("jobs", s.Jobs()).Msg("scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.inner.Shutdown()
}
