package cli

import (
	"fmt"
	"time"

	"github.com/harun/mistalic/internal/config"
	"github.com/harun/mistalic/internal/maintenance"
	"github.com/harun/mistalic/internal/metrics"
	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/api"
	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/rs/zerolog"
)

// runtime holds the components of a running server.
type runtime struct {
	store       kvstore.Store
	workspace   *workspace.Manager
	agents      *agent.Store
	generator   *agent.Generator
	metrics     *metrics.Metrics
	server      *api.Server
	maintenance *maintenance.Scheduler
	logger      zerolog.Logger
}

// openWorkspace opens the configured store and the workspace on top of it.
// The caller owns the returned store.
func openWorkspace(cfg *config.Config, logger zerolog.Logger) (kvstore.Store, *workspace.Manager, error) {
	store, err := kvstore.Open(kvstore.Config{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	ws, err := workspace.Open(workspace.Config{Store: store, Logger: logger})
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	return store, ws, nil
}

// newGenerator builds a generator from the LLM section. Providers without a
// profile fall back to keys stored in the workspace settings.
func newGenerator(cfg *config.Config, ws *workspace.Manager, logger zerolog.Logger) *agent.Generator {
	return agent.NewGenerator(agent.GeneratorConfig{
		Profiles: cfg.LLM.Profiles,
		Defaults: cfg.LLM.GenerationDefaults(),
		Logger:   logger,
		KeyLookup: func(provider string) string {
			if ws == nil {
				return ""
			}
			if key, ok := ws.KeyFor(provider); ok {
				return key.Key
			}
			return ""
		},
	})
}

func newRuntime(cfg *config.Config, logger zerolog.Logger) (*runtime, error) {
	store, ws, err := openWorkspace(cfg, logger)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		store:     store,
		workspace: ws,
		agents:    agent.NewStore(logger),
		metrics:   metrics.NewMetrics(),
		logger:    logger.With().Str("component", "runtime").Logger(),
	}
	rt.generator = newGenerator(cfg, ws, logger)

	read, write, shutdown := cfg.Server.Timeouts()
	rt.server, err = api.NewServer(api.Config{
		Options: api.ServerOptions{
			Port:               cfg.Server.Port,
			Host:               cfg.Server.Host,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
			ReadTimeout:        read,
			WriteTimeout:       write,
			ShutdownTimeout:    shutdown,
			MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		},
		Workspace: ws,
		Agents:    rt.agents,
		Generator: rt.generator,
		Metrics:   rt.metrics,
		Storage:   store.Backend(),
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Maintenance.Enabled {
		rt.maintenance, err = maintenance.New(maintenance.Config{
			Schedule: cfg.Maintenance.Schedule,
			Store:    store,
			Metrics:  rt.metrics,
			Logger:   logger,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return rt, nil
}

// applyConfig applies the parts of a reloaded config that can change
// without a restart.
func (rt *runtime) applyConfig(cfg *config.Config, log levelSetter) {
	if log != nil {
		if err := log.SetLevel(cfg.Logging.Level); err != nil {
			rt.logger.Warn().Err(err).Msg("Ignoring invalid log level")
		}
	}
	rt.generator.SetDefaults(cfg.LLM.GenerationDefaults())
	rt.generator.SetProfiles(cfg.LLM.Profiles)
	rt.logger.Info().
		Str("model", cfg.LLM.DefaultModel).
		Int("profiles", len(cfg.LLM.Profiles)).
		Msg("Applied reloaded configuration")
}

type levelSetter interface {
	SetLevel(level string) error
}

func (rt *runtime) start() {
	if rt.maintenance != nil {
		rt.maintenance.Start()
	}
}

// shutdown stops components in reverse start order.
func (rt *runtime) shutdown(timeout time.Duration) error {
	if rt.maintenance != nil {
		rt.maintenance.Stop(timeout)
	}

	var firstErr error
	if err := rt.server.Stop(); err != nil {
		firstErr = err
	}
	if err := rt.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close storage: %w", err)
	}
	return firstErr
}
