package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/rs/zerolog"
)

const (
	eventWriteTimeout = 5 * time.Second
	eventPongWait     = 60 * time.Second
	eventPingInterval = eventPongWait * 9 / 10
	eventSendBuffer   = 64
)

// eventClient is one /events subscriber. Only its write pump touches the
// connection for writing; publishers hand messages over through send.
type eventClient struct {
	id          string
	conn        *websocket.Conn
	ip          string
	connectedAt time.Time

	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newEventClient(conn *websocket.Conn, ip string) *eventClient {
	return &eventClient{
		id:          uuid.NewString(),
		conn:        conn,
		ip:          ip,
		connectedAt: time.Now(),
		send:        make(chan []byte, eventSendBuffer),
		done:        make(chan struct{}),
	}
}

// enqueue queues data without blocking. It reports false when the client is
// gone or its buffer is full.
func (c *eventClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *eventClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *eventClient) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// EventHub fans workspace events out to WebSocket subscribers
type EventHub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	seq      uint64

	mu      sync.RWMutex
	clients map[string]*eventClient
	closed  bool

	// onCount observes subscriber count changes.
	onCount func(n int)
	// onPublish is called once per published event.
	onPublish func()
}

// NewEventHub creates an empty hub
func NewEventHub(logger zerolog.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger.With().Str("component", "events").Logger(),
		clients: make(map[string]*eventClient),
	}
}

// Attach forwards every event of manager to the hub. The returned function
// detaches it.
func (h *EventHub) Attach(manager *workspace.Manager) workspace.Unsubscribe {
	return manager.OnAny(h.Publish)
}

// Publish broadcasts a workspace event to every subscriber
func (h *EventHub) Publish(payload workspace.EventPayload) {
	ts := payload.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := EventMessage{
		Type:      "event",
		Event:     string(payload.Event),
		Seq:       int64(atomic.AddUint64(&h.seq, 1)),
		Path:      payload.Path,
		OldPath:   payload.OldPath,
		Data:      payload.Data,
		Timestamp: ts.UnixMilli(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("event", msg.Event).Int64("seq", msg.Seq).Msg("Failed to marshal event")
		return
	}
	if h.onPublish != nil {
		h.onPublish()
	}

	clients := h.snapshot()
	if len(clients) == 0 {
		h.logger.Debug().Str("event", msg.Event).Int64("seq", msg.Seq).Msg("No subscribers to broadcast to")
		return
	}

	failed := 0
	for _, client := range clients {
		if !client.enqueue(data) {
			h.logger.Warn().
				Str("clientId", client.id).
				Str("event", msg.Event).
				Int64("seq", msg.Seq).
				Msg("Subscriber not keeping up, disconnecting")
			failed++
			h.drop(client)
		}
	}

	h.logger.Debug().
		Str("event", msg.Event).
		Int64("seq", msg.Seq).
		Int("success", len(clients)-failed).
		Int("failed", failed).
		Msg("Event broadcast complete")
}

// ServeHTTP upgrades the request and streams events until the peer leaves
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := newEventClient(conn, clientIP(r))
	if !h.add(client) {
		_ = conn.Close()
		return
	}

	h.logger.Info().Str("clientId", client.id).Str("ip", client.ip).Msg("Subscriber connected")

	go h.writePump(client)
	h.readLoop(client)
}

// readLoop discards client messages and returns when the connection ends.
func (h *EventHub) readLoop(client *eventClient) {
	defer func() {
		h.drop(client)
		h.logger.Info().Str("clientId", client.id).Msg("Subscriber disconnected")
	}()

	_ = client.conn.SetReadDeadline(time.Now().Add(eventPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(eventPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error().Err(err).Str("clientId", client.id).Msg("WebSocket error")
			}
			return
		}
	}
}

// writePump delivers queued events and keepalive pings. It sends a close
// frame and closes the connection once the client is stopped.
func (h *EventHub) writePump(client *eventClient) {
	ticker := time.NewTicker(eventPingInterval)
	defer func() {
		ticker.Stop()
		h.drop(client)
		_ = client.conn.Close()
	}()

	for {
		select {
		case data := <-client.send:
			if err := client.write(websocket.TextMessage, data); err != nil {
				h.logger.Warn().Err(err).Str("clientId", client.id).Msg("Failed to write event")
				return
			}
		case <-ticker.C:
			if err := client.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			_ = client.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// Count returns the number of connected subscribers
func (h *EventHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones
func (h *EventHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*eventClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*eventClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
	h.countChanged(0)
}

func (h *EventHub) add(client *eventClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[client.id] = client
	n := len(h.clients)
	h.mu.Unlock()

	h.countChanged(n)
	return true
}

func (h *EventHub) drop(client *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[client.id]
	delete(h.clients, client.id)
	n := len(h.clients)
	h.mu.Unlock()

	client.stop()
	if ok {
		h.countChanged(n)
	}
}

func (h *EventHub) snapshot() []*eventClient {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*eventClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *EventHub) countChanged(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}
