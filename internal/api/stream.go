package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gustavobizon/sprint-programacao/internal/auth"
	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/config"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/logging"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// Stream message types.
const (
	StreamTypeEvent = "event"
	StreamTypePing  = "ping"
	StreamTypePong  = "pong"
	StreamTypeError = "error"

	// Event types carried by StreamTypeEvent messages.
	EventReadingStored = "reading.stored"
	EventAvailability  = "service.availability"

	// streamSendBufferSize is the per-client outbound message buffer size.
	streamSendBufferSize = 256

	defaultTicketTTL = 60 * time.Second
)

// StreamMessage is a message sent to or from a stream client.
type StreamMessage struct {
	Type      string `json:"type"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Hub fans stored readings out to connected WebSocket clients. It
// implements sensor.Sink.
type Hub struct {
	cfg     config.StreamConfig
	logger  *logging.Logger
	gate    *availability.Gate
	clients map[*streamClient]struct{}
	mu      sync.RWMutex
}

// streamClient is one connected WebSocket.
type streamClient struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	accountID string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub. Readings are not delivered while gate is paused.
func NewHub(cfg config.StreamConfig, logger *logging.Logger, gate *availability.Gate) *Hub {
	h := &Hub{
		cfg:     cfg,
		logger:  logger,
		gate:    gate,
		clients: make(map[*streamClient]struct{}),
	}
	if gate != nil {
		gate.Observe(func(_ context.Context, state availability.State, _ string) {
			h.Broadcast(EventAvailability, map[string]string{"status": string(state)})
		})
	}
	return h
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// WriteReading implements sensor.Sink.
func (h *Hub) WriteReading(_ context.Context, r sensor.Reading) {
	if h.gate != nil && h.gate.Paused() {
		return
	}
	h.Broadcast(EventReadingStored, r)
}

// Broadcast sends an event to every connected client. Slow clients whose
// buffer is full miss the event.
func (h *Hub) Broadcast(eventType string, payload any) {
	data, err := json.Marshal(StreamMessage{
		Type:      StreamTypeEvent,
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal stream event", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(data)
	}
	if len(clients) > 0 {
		h.logger.Debug("stream event sent", "event_type", eventType, "recipients", len(clients))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", "account_id", c.accountID, "clients", h.ClientCount())
}

// unregister removes c. Only the caller that actually removed it closes
// the send channel.
func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
	h.logger.Debug("stream client disconnected", "clients", h.ClientCount())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// handleStreamTicket issues a single-use ticket for GET /stream.
func (s *Server) handleStreamTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	ticket, ttl := s.tickets.issue(claims)
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ttl.Seconds()),
	})
}

// handleStream upgrades to a WebSocket after redeeming the ticket query
// parameter. No new connections are accepted while reads are paused.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, msgTokenMissing)
		return
	}
	entry, ok := s.tickets.redeem(ticket)
	if !ok {
		writeForbidden(w, msgInvalidTicket)
		return
	}

	if gate := availability.FromContext(r.Context()); gate != nil && gate.Paused() {
		writeError(w, http.StatusServiceUnavailable, "service_paused", msgServicePaused)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{
		hub:       s.hub,
		conn:      conn,
		send:      make(chan []byte, streamSendBufferSize),
		accountID: entry.accountID,
	}
	s.hub.register(c)

	go c.writePump(s.streamCfg)
	go c.readPump(s.streamCfg)
}

func (c *streamClient) readPump(cfg config.StreamConfig) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	pingInterval, pongWait := streamTimings(cfg)
	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

func (c *streamClient) writePump(cfg config.StreamConfig) {
	pingInterval, pongWait := streamTimings(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage answers application-level pings. Clients have nothing
// else to say on this stream.
func (c *streamClient) handleMessage(data []byte) {
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(StreamTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}
	switch msg.Type {
	case StreamTypePing:
		c.reply(StreamTypePong, nil)
	default:
		c.reply(StreamTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

func (c *streamClient) reply(msgType string, payload any) {
	data, err := json.Marshal(StreamMessage{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend queues data without blocking. A closed channel (client gone
// mid-broadcast) or a full buffer drops the message.
func (c *streamClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}

func streamTimings(cfg config.StreamConfig) (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait = time.Duration(cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	return pingInterval, pongWait
}

// ticketStore holds pending stream tickets. Tickets are single-use and
// expire after ttl.
type ticketStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	tickets map[string]ticketEntry
}

type ticketEntry struct {
	accountID string
	role      auth.Role
	expiresAt time.Time
}

func newTicketStore(ttl time.Duration) *ticketStore {
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	return &ticketStore{
		ttl:     ttl,
		now:     time.Now,
		tickets: make(map[string]ticketEntry),
	}
}

// issue stores a new ticket for the caller identified by claims.
func (t *ticketStore) issue(claims *auth.Claims) (string, time.Duration) {
	entry := ticketEntry{expiresAt: t.now().Add(t.ttl)}
	if claims != nil {
		entry.accountID = claims.Subject
		entry.role = claims.Role
	}

	ticket := uuid.NewString()
	t.mu.Lock()
	t.tickets[ticket] = entry
	t.mu.Unlock()
	return ticket, t.ttl
}

// redeem consumes ticket. It reports false for unknown, used or expired
// tickets.
func (t *ticketStore) redeem(ticket string) (ticketEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(t.tickets, ticket)
	if t.now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

func (t *ticketStore) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for ticket, entry := range t.tickets {
		if now.After(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// cleanLoop sweeps expired tickets every ttl until ctx is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(t.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

func (t *ticketStore) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickets)
}
