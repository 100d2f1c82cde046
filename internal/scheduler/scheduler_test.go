package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls atomic.Int32
	err   error
}

func (c *countingCompleter) CompleteFinishedBookings(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

type countingBackup struct {
	calls atomic.Int32
}

func (b *countingBackup) Run(ctx context.Context) error {
	b.calls.Add(1)
	return nil
}

type countingWarmer struct {
	calls atomic.Int32
}

func (w *countingWarmer) WarmUpCache(ctx context.Context) error {
	w.calls.Add(1)
	return errors.New("sheets unavailable")
}

func TestSchedulerRunsJobs(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	completer := &countingCompleter{}
	backup := &countingBackup{}
	warmer := &countingWarmer{}
	require.NoError(t, s.AddCompletionSweep(completer, 20*time.Millisecond))
	require.NoError(t, s.AddBackup(backup, time.Hour))
	require.NoError(t, s.AddCacheWarmup("sheets-cache", warmer, time.Hour))
	assert.ElementsMatch(t, []string{"complete-finished-bookings", "database-backup", "sheets-cache"}, s.Jobs())

	s.Start()
	assert.Eventually(t, func() bool { return completer.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return backup.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	// a failing job keeps the scheduler alive
	assert.Eventually(t, func() bool { return warmer.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown())
}

func TestEveryRejectsZeroInterval(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	err = s.Every("broken", 0, func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
