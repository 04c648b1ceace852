package recurrence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) ExpandAll(context.Context) (int, error) {
	r.calls.Add(1)
	return 1, r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestSchedulerRunsUntilCanceled проверяет немедленный и периодический запуск.
func TestSchedulerRunsUntilCanceled(t *testing.T) {
	runner := &countingRunner{}
	scheduler := NewScheduler(runner, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// TestSchedulerSurvivesErrors проверяет продолжение работы после ошибки прохода.
func TestSchedulerSurvivesErrors(t *testing.T) {
	runner := &countingRunner{err: errors.New("store down")}
	scheduler := NewScheduler(runner, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

// TestSchedulerDisabled проверяет, что нулевой интервал не запускает проходы.
func TestSchedulerDisabled(t *testing.T) {
	runner := &countingRunner{}
	NewScheduler(runner, 0, nil).Run(context.Background())
	assert.Zero(t, runner.calls.Load())
}
