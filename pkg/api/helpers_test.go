package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/harun/mistalic/internal/metrics"
	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers every call with a fixed reply or error.
type fakeProvider struct {
	mu       sync.Mutex
	name     string
	reply    string
	err      error
	requests []agent.LLMRequest
}

func (f *fakeProvider) Call(ctx context.Context, request agent.LLMRequest) (*agent.LLMResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.LLMResponse{Content: f.reply}, nil
}

func (f *fakeProvider) Provider() string {
	return f.name
}

type testEnv struct {
	server    *Server
	workspace *workspace.Manager
	agents    *agent.Store
	provider  *fakeProvider
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T, options ServerOptions) *testEnv {
	t.Helper()

	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = -1
	}

	manager, err := workspace.Open(workspace.Config{Store: kvstore.NewMemoryStore(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	provider := &fakeProvider{name: agent.ProviderMistral, reply: "generated"}
	env := &testEnv{
		workspace: manager,
		agents:    agent.NewStore(zerolog.Nop()),
		provider:  provider,
		metrics:   metrics.NewMetrics(),
	}

	env.server, err = NewServer(Config{
		Options:   options,
		Workspace: manager,
		Agents:    env.agents,
		Generator: agent.NewGenerator(agent.GeneratorConfig{Providers: []agent.LLMProvider{provider}, Logger: zerolog.Nop()}),
		Metrics:   env.metrics,
		Storage:   kvstore.BackendMemory,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.server.Stop() })

	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body ErrorResponse
	decode(t, rec, &body)
	return body.Error
}

func agentCount(t *testing.T, e *testEnv) int {
	t.Helper()

	rec := e.do(t, http.MethodGet, "/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Agents []agent.Record `json:"agents"`
	}
	decode(t, rec, &body)
	return len(body.Agents)
}
