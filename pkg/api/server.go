package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harun/mistalic/internal/metrics"
	"github.com/harun/mistalic/internal/tracing"
	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/rs/zerolog"
)

// Generator completes prompts. *agent.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req agent.GenerateRequest) (*agent.GenerateResult, error)
}

// Config holds the dependencies of a Server
type Config struct {
	Options   ServerOptions
	Workspace *workspace.Manager // required
	Agents    *agent.Store       // required
	Generator Generator          // required
	Metrics   *metrics.Metrics   // optional
	Storage   string             // backend name reported by /health
	Logger    zerolog.Logger
}

// Server is the HTTP API server
type Server struct {
	options   ServerOptions
	server    *http.Server
	handler   http.Handler
	workspace *workspace.Manager
	agents    *agent.Store
	generator Generator
	metrics   *metrics.Metrics
	storage   string

	rateLimiter *RateLimiter
	stats       *StatsTracker
	events      *EventHub
	detach      workspace.Unsubscribe
	logger      zerolog.Logger
	startTime   time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
	stopOnce       sync.Once
}

// NewServer creates a new server and subscribes it to workspace events
func NewServer(cfg Config) (*Server, error) {
	options := cfg.Options
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "127.0.0.1"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 120
	}
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 15 * time.Second
	}
	if options.WriteTimeout == 0 {
		options.WriteTimeout = 90 * time.Second
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 30 * time.Second
	}
	if options.MaxBodyBytes == 0 {
		options.MaxBodyBytes = 4 << 20
	}

	if cfg.Workspace == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	if cfg.Agents == nil {
		return nil, fmt.Errorf("agent store is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	logger := cfg.Logger.With().Str("component", "api").Logger()

	s := &Server{
		options:   options,
		workspace: cfg.Workspace,
		agents:    cfg.Agents,
		generator: cfg.Generator,
		metrics:   cfg.Metrics,
		storage:   cfg.Storage,
		stats:     NewStatsTracker(),
		events:    NewEventHub(logger),
		logger:    logger,
		startTime: time.Now(),
	}
	if options.RateLimitPerMinute > 0 {
		s.rateLimiter = NewRateLimiter(options.RateLimitPerMinute, time.Minute)
	}
	if s.metrics != nil {
		s.events.onCount = func(n int) { s.metrics.EventSubscribers.Set(float64(n)) }
		s.events.onPublish = s.metrics.EventsPublished.Inc
		s.metrics.Agents.Set(float64(s.agents.Len()))
		s.metrics.WorkspaceFiles.Set(float64(len(s.workspace.Files())))
	}
	s.detach = s.events.Attach(s.workspace)
	s.handler = s.routes()

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	mux.Handle("/events", s.events)

	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/agents/save-env", s.handleSaveEnv)
	mux.HandleFunc("/mistral", s.handleGenerate)
	mux.HandleFunc("/models", s.handleModels)

	mux.HandleFunc("/workspace/files", s.handleFiles)
	mux.HandleFunc("/workspace/files/rename", s.handleRename)
	mux.HandleFunc("/workspace/active", s.handleActive)
	mux.HandleFunc("/workspace/save", s.handleSave)
	mux.HandleFunc("/workspace/import", s.handleImport)
	mux.HandleFunc("/workspace/export", s.handleExport)
	mux.HandleFunc("/workspace/convert", s.handleConvert)
	mux.HandleFunc("/workspace/search", s.handleSearch)
	mux.HandleFunc("/workspace/publish", s.handlePublish)

	mux.HandleFunc("/settings/editor", s.handleEditorSettings)
	mux.HandleFunc("/settings/theme", s.handleTheme)
	mux.HandleFunc("/settings/api-keys", s.handleAPIKeys)
	mux.HandleFunc("/settings/env", s.handleEnv)

	return s.middleware(mux)
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Events returns the event hub
func (s *Server) Events() *EventHub {
	return s.events
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.options.Host, strconv.Itoa(s.options.Port))
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: s.options.ReadTimeout,
		ReadTimeout:       s.options.ReadTimeout,
		WriteTimeout:      s.options.WriteTimeout,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server: new requests get 503, subscribers are
// disconnected and in-flight requests are given ShutdownTimeout to finish.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		err = s.stop()
	})
	return err
}

func (s *Server) stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down HTTP server")

	if s.detach != nil {
		s.detach()
	}
	s.events.Close()

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through for /events upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}
		s.inFlightReqs.Add(1)
		s.shutdownMu.RUnlock()
		defer s.inFlightReqs.Done()

		ip := clientIP(r)
		if s.rateLimiter != nil && !s.rateLimiter.Allow(ip) {
			retryAfter := s.rateLimiter.RetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxBodyBytes)
		}

		requestID := tracing.FromRequest(r)
		w.Header().Set(tracing.RequestIDHeader, requestID)
		r = r.WithContext(tracing.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeLabel(r.URL.Path)
		s.stats.Track(route, r.Method, rec.status, float64(elapsed.Milliseconds()))
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, r.Method, strconv.Itoa(rec.status), elapsed.Seconds())
		}

		event := s.logger.Info()
		if rec.status >= 500 {
			event = s.logger.Error()
		} else if rec.status >= 400 {
			event = s.logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", ip).
			Str("request_id", requestID).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("Request completed")
	})
}

// knownRoutes bounds the route label cardinality.
var knownRoutes = map[string]bool{
	"/health": true, "/metrics": true, "/events": true,
	"/agents": true, "/agents/save-env": true, "/mistral": true, "/models": true,
	"/workspace/files": true, "/workspace/files/rename": true, "/workspace/active": true,
	"/workspace/save": true, "/workspace/import": true, "/workspace/export": true,
	"/workspace/convert": true, "/workspace/search": true, "/workspace/publish": true,
	"/settings/editor": true, "/settings/theme": true, "/settings/api-keys": true,
	"/settings/env": true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
