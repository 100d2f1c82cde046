package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"holidayrent/internal/domain"
	"holidayrent/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

// SyncTask is one pending write to the bookings sheet. It travels through
// Redis as JSON.
type SyncTask struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Booking       *models.Booking `json:"booking"`
	Attempt       int             `json:"attempt"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	NextAttemptAt time.Time       `json:"next_attempt_at,omitempty"`
}

// SheetsWorker consumes sync tasks and applies them to Google Sheets.
// With Redis the queue, delayed retries and dead letters live there;
// otherwise they are kept in memory.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan SyncTask
	redisQueueKey string
	retryKey      string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
	now           func() time.Time

	mu          sync.Mutex
	delayed     []SyncTask
	deadLetters []SyncTask
}

var _ domain.SyncWorker = (*SheetsWorker)(nil)

// NewSheetsWorker builds a worker. redisClient may be nil.
func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan SyncTask, 128),
		redisQueueKey: "sheets:queue",
		retryKey:      "sheets:retry",
		deadLetterKey: "sheets:deadletter",
		pollInterval:  time.Second,
		logger:        logger,
		now:           time.Now,
	}
}

// EnqueueTask schedules a sheet write for booking. The booking is copied.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error {
	switch taskType {
	case TaskUpsert, TaskUpdateStatus:
	case "":
		return errors.New("task type is required")
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
	if booking == nil || booking.ID == "" {
		return errors.New("booking id is required")
	}

	snapshot := *booking
	task := SyncTask{
		ID:        uuid.NewString(),
		Type:      taskType,
		Booking:   &snapshot,
		CreatedAt: w.now(),
	}
	w.push(ctx, task)
	return nil
}

// push hands task to Redis, or to the in-memory queue when Redis is
// missing or failing. A full memory queue spills into the delayed list.
func (w *SheetsWorker) push(ctx context.Context, task SyncTask) {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.redisQueueKey, task)
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).Str("task_id", task.ID).Msg("sheets_worker: redis push failed, fallback to memory queue")
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Str("task_id", task.ID).Msg("sheets_worker: in-memory queue full, task deferred")
		w.mu.Lock()
		w.delayed = append(w.delayed, task)
		w.mu.Unlock()
	}
}

// Start launches main loop; stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets_worker: started")
	defer w.logger.Info().Msg("sheets_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.promoteDue(ctx)

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		if w.redis == nil {
			select {
			case <-ctx.Done():
				return
			case t := <-w.queue:
				w.processTask(ctx, &t)
			case <-time.After(w.pollInterval):
			}
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (SyncTask, bool) {
	if w.redis == nil {
		return SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, w.pollInterval, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("sheets_worker: redis BRPOP error")
		// avoid spinning while redis is down
		select {
		case <-ctx.Done():
		case <-time.After(w.pollInterval):
		}
		return SyncTask{}, false
	}
	if len(res) != 2 {
		return SyncTask{}, false
	}
	var task SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("sheets_worker: decode redis task")
		return SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *SyncTask) {
	if err := w.handleSheetTask(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Debug().
		Str("task_id", task.ID).
		Str("type", task.Type).
		Str("booking_id", task.Booking.ID).
		Msg("sheets_worker: task completed")
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, task *SyncTask) error {
	if task.Booking == nil {
		return errors.New("booking payload missing")
	}
	switch task.Type {
	case TaskUpsert:
		return w.sheets.UpsertBooking(ctx, task.Booking)
	case TaskUpdateStatus:
		return w.sheets.UpdateBookingStatus(ctx, task.Booking.ID, task.Booking.Status, task.Booking.PaymentStatus)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *SyncTask, cause error) {
	task.Attempt++
	task.LastError = cause.Error()

	if w.retryPolicy.Exhausted(task.Attempt) {
		w.logger.Error().Err(cause).
			Str("task_id", task.ID).
			Int("attempt", task.Attempt).
			Msg("sheets_worker: task failed permanently")
		w.pushDeadLetter(ctx, *task)
		return
	}

	task.NextAttemptAt = w.now().Add(w.retryPolicy.NextDelay(task.Attempt))
	w.logger.Warn().Err(cause).
		Str("task_id", task.ID).
		Int("attempt", task.Attempt).
		Time("next_attempt_at", task.NextAttemptAt).
		Msg("sheets_worker: task will be retried")
	w.scheduleRetry(ctx, *task)
}

func (w *SheetsWorker) scheduleRetry(ctx context.Context, task SyncTask) {
	if w.redis != nil {
		data, err := json.Marshal(task)
		if err == nil {
			err = w.redis.ZAdd(ctx, w.retryKey, redis.Z{
				Score:  float64(task.NextAttemptAt.UnixMilli()),
				Member: data,
			}).Err()
		}
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).Str("task_id", task.ID).Msg("sheets_worker: redis retry schedule failed, keeping in memory")
	}
	w.mu.Lock()
	w.delayed = append(w.delayed, task)
	w.mu.Unlock()
}

// promoteDue moves retries whose time has come back onto the queue.
func (w *SheetsWorker) promoteDue(ctx context.Context) {
	now := w.now()

	w.mu.Lock()
	var due []SyncTask
	kept := w.delayed[:0]
	for _, t := range w.delayed {
		if !t.NextAttemptAt.After(now) {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	w.delayed = kept
	w.mu.Unlock()

	for _, t := range due {
		w.push(ctx, t)
	}

	if w.redis == nil {
		return
	}
	members, err := w.redis.ZRangeByScore(ctx, w.retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("sheets_worker: read retry set")
		}
		return
	}
	for _, m := range members {
		// only the worker that removes the member re-queues it
		removed, err := w.redis.ZRem(ctx, w.retryKey, m).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := w.redis.LPush(ctx, w.redisQueueKey, m).Err(); err != nil {
			w.logger.Error().Err(err).Msg("sheets_worker: requeue retry")
		}
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task SyncTask) {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.deadLetterKey, task)
		if err == nil {
			return
		}
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("sheets_worker: deadletter push failed")
	}
	w.mu.Lock()
	w.deadLetters = append(w.deadLetters, task)
	w.mu.Unlock()
}

// DeadLetters lists tasks that exhausted their retries, newest first.
func (w *SheetsWorker) DeadLetters(ctx context.Context) ([]SyncTask, error) {
	w.mu.Lock()
	out := make([]SyncTask, 0, len(w.deadLetters))
	for i := len(w.deadLetters) - 1; i >= 0; i-- {
		out = append(out, w.deadLetters[i])
	}
	w.mu.Unlock()

	if w.redis == nil {
		return out, nil
	}
	raw, err := w.redis.LRange(ctx, w.deadLetterKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}
	for _, r := range raw {
		var t SyncTask
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			w.logger.Error().Err(err).Msg("sheets_worker: decode deadletter")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
