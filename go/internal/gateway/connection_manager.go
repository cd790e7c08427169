package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/turnbid/go/internal/auction/events"
	"github.com/mcdev12/turnbid/go/internal/identity"
)

// ConnectionHandler receives the lifecycle of every admitted connection
type ConnectionHandler interface {
	HandleConnect(c *Connection)
	HandleMessage(c *Connection, message []byte)
	HandleDisconnect(c *Connection)
}

// ConnectionManager manages WebSocket connections addressed by connection id
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	// Outbound events, drained by Start in order
	outboundCh chan outbound
	flushCh    chan chan struct{}
	// loopDone is closed when the running Start loop exits; nil when idle
	loopDone chan struct{}
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Claims  identity.Claims
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	handler ConnectionHandler
	// closed is closed once the write pump has exited
	closed chan struct{}

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type outbound struct {
	connectionID string
	event        *events.Envelope
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     AllowedOrigins(nil),
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:     config,
		outboundCh: make(chan outbound, 1000),
		flushCh:    make(chan chan struct{}),
	}
}

// Start delivers queued events until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	loopDone := make(chan struct{})
	cm.mu.Lock()
	cm.loopDone = loopDone
	cm.mu.Unlock()
	defer func() {
		cm.mu.Lock()
		if cm.loopDone == loopDone {
			cm.loopDone = nil
		}
		cm.mu.Unlock()
		close(loopDone)
	}()
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case msg := <-cm.outboundCh:
			cm.deliver(msg)
		case done := <-cm.flushCh:
			cm.drain()
			close(done)
		}
	}
}

// Flush hands every queued event to its connection before returning, or
// gives up after timeout. Queue order is kept: a running Start loop does the
// draining itself.
func (cm *ConnectionManager) Flush(timeout time.Duration) {
	cm.mu.RLock()
	loopDone := cm.loopDone
	cm.mu.RUnlock()

	if loopDone != nil {
		done := make(chan struct{})
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case cm.flushCh <- done:
			select {
			case <-done:
			case <-timer.C:
				log.Warn().Dur("timeout", timeout).Msg("outbound flush timed out")
			}
			return
		case <-loopDone:
		case <-timer.C:
			log.Warn().Dur("timeout", timeout).Msg("outbound flush timed out")
			return
		}
	}
	cm.drain()
}

func (cm *ConnectionManager) drain() {
	for {
		select {
		case msg := <-cm.outboundCh:
			cm.deliver(msg)
		default:
			return
		}
	}
}

// Send queues an event for one connection. It never blocks; when the queue
// is full the event is dropped.
func (cm *ConnectionManager) Send(connectionID string, ev *events.Envelope) {
	select {
	case cm.outboundCh <- outbound{connectionID: connectionID, event: ev}:
	default:
		log.Warn().
			Str("connection_id", connectionID).
			Str("event_type", string(ev.Type)).
			Msg("outbound channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and hands it
// to handler.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, claims identity.Claims, handler ConnectionHandler) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Claims:      claims,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		handler:     handler,
		closed:      make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)
	handler.HandleConnect(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("identity", claims.Identity).
		Str("role", string(claims.Role)).
		Msg("WebSocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and notifies its handler once
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	if _, exists := cm.connections[conn.ID]; !exists {
		cm.mu.Unlock()
		return
	}
	delete(cm.connections, conn.ID)
	close(conn.Send)
	cm.mu.Unlock()

	conn.handler.HandleDisconnect(conn)

	log.Info().
		Str("connection_id", conn.ID).
		Str("identity", conn.Claims.Identity).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) deliver(msg outbound) {
	data, err := json.Marshal(msg.event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	cm.mu.RLock()
	conn, exists := cm.connections[msg.connectionID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	select {
	case conn.Send <- data:
		cm.mu.RUnlock()
	default:
		cm.mu.RUnlock()
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats summarizes open connections by role
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	Organizers       int `json:"organizers"`
	Bidders          int `json:"bidders"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{TotalConnections: len(cm.connections)}
	for _, c := range cm.connections {
		if c.Claims.Role == identity.RoleOrganizer {
			stats.Organizers++
		} else {
			stats.Bidders++
		}
	}
	return stats
}

// CloseAll closes every open connection. Messages already handed to a
// connection are written before its close frame; connections that have not
// finished within the write timeout are closed outright.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
	}

	deadline := time.NewTimer(cm.config.WriteTimeout)
	defer deadline.Stop()
	for _, c := range conns {
		select {
		case <-c.closed:
		case <-deadline.C:
			log.Warn().Msg("connections still writing at shutdown, closing them")
			for _, rest := range conns {
				rest.Conn.Close()
			}
			return
		}
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
		close(c.closed)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server closing connection"))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client commands until the connection drops
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handler.HandleMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
