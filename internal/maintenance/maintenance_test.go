package maintenance

import (
	"errors"
	"testing"
	"time"

	"github.com/harun/mistalic/internal/metrics"
	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maintainedStore is an in-memory store that counts maintenance runs.
type maintainedStore struct {
	kvstore.Store
	runs int
	err  error
}

func (s *maintainedStore) Maintain() error {
	s.runs++
	return s.err
}

func TestNew(t *testing.T) {
	t.Run("requires a store", func(t *testing.T) {
		_, err := New(Config{Schedule: "@every 1h"})
		assert.Error(t, err)
	})

	t.Run("rejects a bad schedule", func(t *testing.T) {
		_, err := New(Config{Schedule: "every hour", Store: kvstore.NewMemoryStore()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid maintenance schedule")
	})

	t.Run("accepts standard specs and descriptors", func(t *testing.T) {
		for _, spec := range []string{"0 3 * * *", "@daily", "@every 30m"} {
			s, err := New(Config{Schedule: spec, Store: kvstore.NewMemoryStore(), Logger: zerolog.Nop()})
			require.NoError(t, err, spec)
			assert.NotNil(t, s)
		}
	})
}

func TestRunOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := &maintainedStore{Store: kvstore.NewMemoryStore()}
		require.NoError(t, store.Set("a", []byte("1")))
		require.NoError(t, store.Set("b", []byte("2")))
		m := metrics.NewMetrics()
		s, err := New(Config{Schedule: "@every 1h", Store: store, Metrics: m, Logger: zerolog.Nop()})
		require.NoError(t, err)

		require.NoError(t, s.RunOnce())
		require.NoError(t, s.RunOnce())

		assert.Equal(t, 2, store.runs)
		assert.Equal(t, float64(2), testutil.ToFloat64(m.MaintenanceRunsTotal.WithLabelValues(ResultSuccess)))

		status := s.Status()
		assert.Equal(t, 2, status.Runs)
		assert.Equal(t, ResultSuccess, status.LastResult)
		assert.Equal(t, 2, status.Keys)
		assert.Empty(t, status.LastError)
		assert.False(t, status.LastRun.IsZero())
	})

	t.Run("error", func(t *testing.T) {
		store := &maintainedStore{Store: kvstore.NewMemoryStore(), err: errors.New("disk full")}
		m := metrics.NewMetrics()
		s, err := New(Config{Schedule: "@every 1h", Store: store, Metrics: m, Logger: zerolog.Nop()})
		require.NoError(t, err)

		err = s.RunOnce()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, float64(1), testutil.ToFloat64(m.MaintenanceRunsTotal.WithLabelValues(ResultError)))
		assert.Equal(t, "disk full", s.Status().LastError)
	})

	t.Run("backend without housekeeping is skipped", func(t *testing.T) {
		m := metrics.NewMetrics()
		s, err := New(Config{Schedule: "@every 1h", Store: kvstore.NewMemoryStore(), Metrics: m, Logger: zerolog.Nop()})
		require.NoError(t, err)

		require.NoError(t, s.RunOnce())
		assert.Equal(t, ResultSkipped, s.Status().LastResult)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.MaintenanceRunsTotal.WithLabelValues(ResultSkipped)))
	})
}

func TestStartStop(t *testing.T) {
	s, err := New(Config{Schedule: "@every 1h", Store: kvstore.NewMemoryStore(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	s.Start()
	next := s.Status().Next
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)

	s.Stop(time.Second)
	s.Stop(time.Second)
}
