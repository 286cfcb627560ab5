package tracing

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewRequestID())
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"missing", "", false},
		{"caller supplied", "abc-123", true},
		{"contains spaces", "abc 123", false},
		{"control characters", "abc\n123", false},
		{"too long", strings.Repeat("a", 129), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/health", nil)
			if tt.header != "" {
				r.Header.Set(RequestIDHeader, tt.header)
			}
			id := FromRequest(r)
			if tt.keep {
				assert.Equal(t, tt.header, id)
			} else {
				_, err := uuid.Parse(id)
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	plain := Logger(context.Background(), base)
	plain.Info().Msg("plain")
	assert.NotContains(t, buf.String(), "request_id")

	buf.Reset()
	tagged := Logger(WithRequestID(context.Background(), "req-9"), base)
	tagged.Info().Msg("tagged")
	assert.Contains(t, buf.String(), `"request_id":"req-9"`)
}
