package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
)

// yearly never fires during a test
const yearly = "0 0 1 1 *"

func watchAsync(ctx context.Context, expr string, job Job, opts ...Option) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, expr, job, opts...)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
		return nil
	}
}

func TestWatchRunOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	ran := make(chan struct{}, 1)
	done := watchAsync(ctx, yearly, func(ctx context.Context) error {
		calls.Add(1)
		ran <- struct{}{}
		return nil
	}, WithRunOnStart(true), WithLogger(logger.NewNopLogger()))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run on start")
	}
	cancel()

	require.NoError(t, waitDone(t, done))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatchWithoutRunOnStartWaitsForSchedule(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	err := Watch(ctx, yearly, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, WithLogger(logger.NewNopLogger()))

	require.NoError(t, err)
	assert.Zero(t, calls.Load())
}

func TestWatchFollowsSecondsSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := watchAsync(ctx, "* * * * * *", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, WithSeconds(), WithLogger(logger.NewNopLogger()))

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestWatchRunsDoNotOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running, maxRunning, calls atomic.Int32
	done := watchAsync(ctx, "* * * * * *", func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxRunning.Load() {
			maxRunning.Store(n)
		}
		calls.Add(1)
		select {
		case <-time.After(1500 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}, WithSeconds(), WithRunOnStart(true), WithLogger(logger.NewNopLogger()))

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 8*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestWatchCancelsRunningJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	var sawCancel atomic.Bool
	done := watchAsync(ctx, yearly, func(jobCtx context.Context) error {
		close(started)
		<-jobCtx.Done()
		sawCancel.Store(true)
		return jobCtx.Err()
	}, WithRunOnStart(true), WithLogger(logger.NewNopLogger()))

	<-started
	cancel()

	require.NoError(t, waitDone(t, done))
	assert.True(t, sawCancel.Load())
}

func TestWatchLogsFailedRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.NewTestLogger()
	done := watchAsync(ctx, yearly, func(ctx context.Context) error {
		return fmt.Errorf("account 1: boom")
	}, WithRunOnStart(true), WithLogger(log))

	assert.Eventually(t, func() bool { return log.HasMessage("Scheduled run failed") }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))
	assert.True(t, log.HasMessage("Scheduled run starting"))
}

func TestWatchRejectsBadCron(t *testing.T) {
	err := Watch(context.Background(), "not a cron", func(ctx context.Context) error { return nil },
		WithLogger(logger.NewNopLogger()))
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "not a cron")
}

func TestPairs(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "x"}, pairs([]any{"a", 1, "b", "x"}))
	assert.Equal(t, map[string]interface{}{"a": 1, "extra": "dangling"}, pairs([]any{"a", 1, "dangling"}))
}

func TestStopReasonAndIsStop(t *testing.T) {
	sigErr := &run.SignalError{Signal: os.Interrupt}

	assert.NotPanics(t, func() { stopReason(sigErr) })
	assert.Equal(t, "signal interrupt", stopReason(sigErr))
	assert.Equal(t, "signal interrupt", stopReason(fmt.Errorf("group: %w", sigErr)))
	assert.Equal(t, "signal", stopReason(run.SignalError{}))
	assert.Equal(t, "stopped", stopReason(nil))
	assert.Equal(t, "boom", stopReason(errors.New("boom")))

	assert.True(t, isStop(nil))
	assert.True(t, isStop(sigErr))
	assert.True(t, isStop(context.Canceled))
	assert.True(t, isStop(context.DeadlineExceeded))
	assert.False(t, isStop(errors.New("boom")))
}
