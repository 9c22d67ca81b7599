package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventSink receives inbound traffic from a connection. HandleDisconnect is
// invoked while the connection's group memberships are still attached, and
// may be invoked more than once for a single logical disconnect (both pumps
// tear the connection down on their way out), so implementations must be
// idempotent.
type EventSink interface {
	HandleEvent(c *Conn, env Envelope)
	HandleDisconnect(c *Conn)
}

// ConnConfig holds configuration for WebSocket connections.
type ConnConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnConfig returns default WebSocket configuration.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// Conn is one WebSocket connection. The token identifies the logical player
// behind the connection and can be replaced when the server mints a fresh
// identity during the handshake.
type Conn struct {
	id   string
	hub  *Hub
	sock *websocket.Conn
	send chan []byte
	sink EventSink

	mu    sync.RWMutex
	token string
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Conn) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Hub manages WebSocket connections and their subscriber groups. Groups are
// keyed by room code, plus one personal group per player id for direct
// notifications. Delivery is fire and forget: no acknowledgment, no retry.
type Hub struct {
	config   ConnConfig
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	conns      map[*Conn]bool
	groups     map[string]map[*Conn]bool
	connGroups map[*Conn]map[string]bool
}

func NewHub(config ConnConfig) *Hub {
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		conns:      make(map[*Conn]bool),
		groups:     make(map[string]map[*Conn]bool),
		connGroups: make(map[*Conn]map[string]bool),
	}
}

// Upgrade upgrades an HTTP request to a WebSocket connection and starts its
// read/write pumps.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, token string, sink EventSink) (*Conn, error) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	conn := &Conn{
		id:    uuid.New().String(),
		hub:   h,
		sock:  sock,
		send:  make(chan []byte, h.config.SendBuffer),
		sink:  sink,
		token: token,
	}
	h.register(conn)

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("conn_id", conn.id).
		Msg("websocket connection established")
	return conn, nil
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = true
	h.connGroups[c] = make(map[string]bool)
}

// unregister removes the connection from every group and closes its send
// channel. Safe to call more than once.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.conns[c] {
		return
	}
	delete(h.conns, c)
	for group := range h.connGroups[c] {
		h.leaveLocked(c, group)
	}
	delete(h.connGroups, c)
	close(c.send)

	log.Info().
		Str("conn_id", c.id).
		Msg("connection unregistered")
}

// Join subscribes the connection to a broadcast group.
func (h *Hub) Join(c *Conn, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.conns[c] {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Conn]bool)
	}
	h.groups[group][c] = true
	h.connGroups[c][group] = true

	log.Debug().
		Str("conn_id", c.id).
		Str("group", group).
		Int("subscribers", len(h.groups[group])).
		Msg("joined group")
}

// Leave unsubscribes the connection from a broadcast group.
func (h *Hub) Leave(c *Conn, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, group)
	if cg, ok := h.connGroups[c]; ok {
		delete(cg, group)
	}
}

func (h *Hub) leaveLocked(c *Conn, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// SendTo delivers one event to a single connection.
func (h *Hub) SendTo(c *Conn, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}
	h.deliver(c, frame, event)
}

// Publish fans an event out to every subscriber of a group.
func (h *Hub) Publish(group string, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	members := make([]*Conn, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		h.deliver(c, frame, event)
	}

	log.Debug().
		Str("group", group).
		Str("event", event).
		Int("subscribers", len(members)).
		Msg("event broadcasted")
}

func (h *Hub) deliver(c *Conn, frame []byte, event string) {
	select {
	case c.send <- frame:
	default:
		// Slow or dead consumer, drop it.
		log.Warn().
			Str("conn_id", c.id).
			Str("event", event).
			Msg("send buffer full, closing connection")
		h.unregister(c)
		if c.sock != nil {
			c.sock.Close()
		}
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// teardown notifies the sink of the disconnect and then detaches the
// connection. The sink runs first so it can still see the connection's group
// memberships.
func (c *Conn) teardown() {
	if c.sink != nil {
		c.sink.HandleDisconnect(c)
	}
	c.hub.unregister(c)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.sock.Close()
		c.teardown()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Error().Err(err).Str("conn_id", c.id).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.teardown()
		c.sock.Close()
	}()

	c.sock.SetReadLimit(c.hub.config.MaxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, msg, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.sock.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))

		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Warn().Err(err).Str("conn_id", c.id).Msg("dropping malformed frame")
			continue
		}
		if c.sink != nil {
			c.sink.HandleEvent(c, env)
		}
	}
}
