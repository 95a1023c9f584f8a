//go:build unix

package schedule

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xqtimeline/pkg/logger"
)

func TestWatchStopsOnSignal(t *testing.T) {
	// keep the default action of SIGUSR1 away from the test binary
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGUSR1)
	defer signal.Stop(guard)

	tl := logger.NewTestLogger()
	done := watchAsync(context.Background(), yearly, func(ctx context.Context) error { return nil },
		WithSignals(syscall.SIGUSR1),
		WithLocation(time.UTC),
		WithStopTimeout(time.Second),
		WithLogger(tl),
	)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.True(t, tl.HasMessage("Component stopped"))
			return
		case <-ticker.C:
			require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
		case <-deadline:
			t.Fatal("watch did not stop on signal")
		}
	}
}
