package api

import (
	"time"
)

// ServerOptions configures the HTTP server
type ServerOptions struct {
	Port               int           // Server port (default: 3000)
	Host               string        // Server host (default: "127.0.0.1")
	RateLimitPerMinute int           // Requests per minute per IP (default: 120, negative disables)
	ReadTimeout        time.Duration // default: 15s
	WriteTimeout       time.Duration // default: 90s, bounds upstream generation calls
	ShutdownTimeout    time.Duration // Wait for in-flight requests (default: 30s)
	MaxBodyBytes       int64         // default: 4 MiB
}

// RouteStats tracks request counts and latency of one route
type RouteStats struct {
	Route               string  `json:"route"`
	Method              string  `json:"method"`
	TotalRequests       int64   `json:"totalRequests"`
	SuccessCount        int64   `json:"successCount"`
	FailureCount        int64   `json:"failureCount"`
	AverageResponseTime float64 `json:"averageResponseTime"` // milliseconds
	LastRequestAt       int64   `json:"lastRequestAt,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string       `json:"status"`
	Uptime      float64      `json:"uptime"` // seconds
	Files       int          `json:"files"`
	Agents      int          `json:"agents"`
	Subscribers int          `json:"subscribers"`
	Storage     string       `json:"storage,omitempty"`
	Routes      []RouteStats `json:"routes"`
	Timestamp   int64        `json:"timestamp"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// AgentsResponse is the body of GET /agents
type AgentsResponse struct {
	Agents interface{} `json:"agents"`
}

// AgentResponse is the body of a successful agent create or update
type AgentResponse struct {
	Success bool        `json:"success"`
	Agent   interface{} `json:"agent"`
}

// MessageResponse is a success flag plus a human readable message
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GenerateResponse is the body of POST /mistral
type GenerateResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SaveEnvRequest is the body of POST /agents/save-env
type SaveEnvRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EventMessage is a workspace event delivered to /events subscribers
type EventMessage struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Seq       int64       `json:"seq"`
	Path      string      `json:"path,omitempty"`
	OldPath   string      `json:"oldPath,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}
