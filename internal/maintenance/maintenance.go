// Package maintenance runs periodic storage housekeeping on a cron schedule.
package maintenance

import (
	"fmt"
	"sync"
	"time"

	"github.com/harun/mistalic/internal/metrics"
	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Run outcomes, also used as metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Config configures a Scheduler
type Config struct {
	Schedule string        // standard cron spec or descriptor such as "@every 1h"
	Store    kvstore.Store // required
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Status describes the last run and the next planned one
type Status struct {
	Runs       int       `json:"runs"`
	LastRun    time.Time `json:"lastRun,omitempty"`
	LastResult string    `json:"lastResult,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
	Keys       int       `json:"keys"` // keys held by the store after the last run
	Next       time.Time `json:"next,omitempty"`
}

// Scheduler triggers kvstore maintenance on a schedule. Overlapping runs are
// skipped and a panicking backend does not stop the schedule.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	store   kvstore.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	status   Status
	stopOnce sync.Once
}

// New creates a scheduler. It does not run until Start is called.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("maintenance requires a store")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", cfg.Schedule, err)
	}

	logger := cfg.Logger.With().Str("component", "maintenance").Logger()
	cronLog := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  logger,
	}

	entry, err := s.cron.AddFunc(cfg.Schedule, func() { _ = s.RunOnce() })
	if err != nil {
		return nil, fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	s.entry = entry
	return s, nil
}

// Start starts the schedule in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Time("next", s.cron.Entry(s.entry).Next).Msg("Maintenance scheduled")
}

// Stop stops the schedule and waits up to timeout for a running job
func (s *Scheduler) Stop(timeout time.Duration) {
	s.stopOnce.Do(func() {
		ctx := s.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(timeout):
			s.logger.Warn().Msg("Maintenance still running at shutdown")
		}
	})
}

// RunOnce runs maintenance immediately. Backends without housekeeping are
// reported as skipped.
func (s *Scheduler) RunOnce() error {
	start := time.Now()
	result := ResultSkipped

	var err error
	if m, ok := s.store.(kvstore.Maintainer); ok {
		err = m.Maintain()
		result = ResultSuccess
		if err != nil {
			result = ResultError
		}
	}

	keys, keysErr := s.store.Keys("")
	if keysErr != nil {
		s.logger.Warn().Err(keysErr).Msg("Failed to count stored keys")
	}

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRun = start
	s.status.LastResult = result
	if keysErr == nil {
		s.status.Keys = len(keys)
	}
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.MaintenanceRunsTotal.WithLabelValues(result).Inc()
	}

	event := s.logger.Debug()
	if err != nil {
		event = s.logger.Error().Err(err)
	}
	event.
		Str("backend", s.store.Backend()).
		Str("result", result).
		Int("keys", len(keys)).
		Dur("duration", time.Since(start)).
		Msg("Storage maintenance finished")

	if err != nil {
		return fmt.Errorf("storage maintenance failed: %w", err)
	}
	return nil
}

// Status returns a snapshot of the run history
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	status.Next = s.cron.Entry(s.entry).Next
	return status
}

// cronLogger routes robfig/cron's logging through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
