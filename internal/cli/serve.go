package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/mistalic/internal/config"
	"github.com/harun/mistalic/internal/logger"
	"github.com/harun/mistalic/internal/tracing"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveHost    string
	serveStorage string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Mistalic server",
	Long: `Start the Mistalic HTTP API server in the foreground.

The server keeps the workspace in the configured storage backend, reloads
the config file when it changes and stops on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
	serveCmd.Flags().StringVar(&serveStorage, "storage", "", "storage backend: badger, sqlite, memory (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	pidFile := getPIDFilePath()
	if isRunning(pidFile) {
		return fmt.Errorf("server is already running")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Output:    cmd.ErrOrStderr(),
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	zl := log.Zerolog()

	for _, problem := range config.NewValidator().ValidateConfig(cfg) {
		zl.Warn().Err(problem).Msg("Configuration warning")
	}

	if err := tracing.InitOpenTelemetry("mistalic", version); err != nil {
		zl.Warn().Err(err).Msg("Tracing disabled")
	}
	defer tracing.ShutdownOpenTelemetry(context.Background())

	rt, err := newRuntime(cfg, zl)
	if err != nil {
		return err
	}

	if err := writePIDFile(pidFile); err != nil {
		_ = rt.shutdown(0)
		return err
	}
	defer os.Remove(pidFile)

	rt.start()

	loader := config.NewLoader(cfgFile)
	watcher, err := config.Watch(config.WatcherConfig{
		Loader: loader,
		Logger: zl,
		OnChange: func(next *config.Config) {
			rt.applyConfig(next, log)
		},
	})
	if err != nil {
		zl.Warn().Err(err).Msg("Config hot reload disabled")
	} else {
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- rt.server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(cmd.OutOrStdout(), "Mistalic listening on http://%s\n", rt.server.Addr())

	var serveErr error
	select {
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case serveErr = <-errCh:
	}

	_, _, shutdownTimeout := cfg.Server.Timeouts()
	if err := rt.shutdown(shutdownTimeout); err != nil {
		zl.Error().Err(err).Msg("Shutdown finished with errors")
	}
	if serveErr != nil {
		return serveErr
	}

	zl.Info().Msg("Server stopped")
	return nil
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if flags.Changed("storage") && serveStorage != cfg.Storage.Backend {
		cfg.Storage.Backend = serveStorage
		cfg.Storage.Path = ""
		_ = config.ResolvePaths(cfg)
	}
}
