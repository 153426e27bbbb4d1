package cleanup_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hugh/go-warden/internal/cleanup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *cleanup.Scheduler {
	t.Helper()

	sweeper, _ := newTestSweeper(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := cleanup.NewScheduler(sweeper, logger, "0 3 * * *", "0 4 * * 0")
	t.Cleanup(s.Stop)
	return s
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := newTestScheduler(t)

	t.Run("starts stopped", func(t *testing.T) {
		status := s.Status()
		assert.False(t, status.Running)
		assert.Empty(t, status.Entries)
	})

	t.Run("start arms both sweeps", func(t *testing.T) {
		require.NoError(t, s.Start())

		status := s.Status()
		assert.True(t, status.Running)
		require.Len(t, status.Entries, 2)
		assert.Equal(t, "daily abandoned sweep", status.Entries[0].Name)
		assert.Equal(t, "0 3 * * *", status.Entries[0].Spec)
		assert.Equal(t, "weekly deep sweep", status.Entries[1].Name)
		assert.True(t, status.Entries[0].NextRun.After(time.Now()))
	})

	t.Run("start is idempotent", func(t *testing.T) {
		require.NoError(t, s.Start())
		assert.Len(t, s.Status().Entries, 2)
	})

	t.Run("stop disarms", func(t *testing.T) {
		s.Stop()
		assert.False(t, s.Status().Running)

		// Stopping again is harmless
		s.Stop()
	})

	t.Run("restart rearms", func(t *testing.T) {
		require.NoError(t, s.Restart())
		status := s.Status()
		assert.True(t, status.Running)
		assert.Len(t, status.Entries, 2)
	})
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	sweeper, _ := newTestSweeper(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := cleanup.NewScheduler(sweeper, logger, "not a cron spec", "0 4 * * 0")
	assert.Error(t, s.Start())
	assert.False(t, s.Status().Running)
}
