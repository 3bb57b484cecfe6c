// Package realtime maintains the WebSocket channel to the StoryForge
// backend. At most one physical connection exists at any time; the channel
// announces project membership after every (re)connect, translates named
// server events into workflow store mutations and notices, and reconnects
// with exponential backoff when the transport drops.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/storyforge-ai/workflow-agent/internal/metrics"
	"github.com/storyforge-ai/workflow-agent/internal/notify"
	"github.com/storyforge-ai/workflow-agent/internal/workflow"
)

// Config holds realtime channel configuration.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:8000/ws".
	URL string

	// MaxReconnectAttempts caps the reconnect loop. Exceeding it surfaces a
	// terminal connection-lost notice; a later explicit Connect starts over.
	MaxReconnectAttempts int

	// BackoffUnit scales the reconnect delay: delay = 2^attempt * unit.
	// Production uses one second.
	BackoffUnit time.Duration

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns sane defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		MaxReconnectAttempts: 5,
		BackoffUnit:          time.Second,
		HandshakeTimeout:     10 * time.Second,
	}
}

// frame is the wire envelope for both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// joinPayload announces project membership. Membership does not survive a
// transport reconnect, so it is re-sent after every successful dial.
type joinPayload struct {
	ProjectID string `json:"project_id"`
}

// wsConn is the subset of *websocket.Conn the channel needs; tests provide
// in-memory implementations.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type dialFunc func(ctx context.Context, url string) (wsConn, error)

// Channel is the realtime event channel. Construct with NewChannel.
type Channel struct {
	cfg     Config
	logger  zerolog.Logger
	store   *workflow.Store
	notices *notify.Center
	metrics *metrics.Metrics

	handlers map[string]eventHandler

	mu        sync.Mutex
	conn      wsConn
	projectID string
	// epoch counts Connect/Disconnect transitions. A reconnect loop carries
	// the epoch of the connection it is replacing and aborts once it moves,
	// so an explicit Connect issued during backoff always supersedes it.
	epoch uint64

	connected    atomic.Bool
	closed       atomic.Bool
	reconnecting atomic.Bool

	// test seams
	dial  dialFunc
	sleep func(d time.Duration) bool // false = aborted
}

// NewChannel creates a realtime channel bound to the store and notice center.
func NewChannel(cfg Config, store *workflow.Store, notices *notify.Center, m *metrics.Metrics, logger zerolog.Logger) *Channel {
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.BackoffUnit == 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	c := &Channel{
		cfg:     cfg,
		logger:  logger.With().Str("component", "realtime").Logger(),
		store:   store,
		notices: notices,
		metrics: m,
	}
	c.handlers = c.eventTable()
	c.dial = c.dialWebsocket
	c.sleep = func(d time.Duration) bool {
		time.Sleep(d)
		return !c.closed.Load()
	}
	return c
}

func (c *Channel) dialWebsocket(ctx context.Context, url string) (wsConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect opens the channel for the given project. Calling it again with the
// same project while connected is a no-op; with a different project, the old
// connection is torn down deterministically before the new one is dialed.
func (c *Channel) Connect(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("connect: empty project id")
	}

	c.mu.Lock()
	if c.connected.Load() && c.conn != nil && c.projectID == projectID {
		c.mu.Unlock()
		return nil
	}
	if old := c.conn; old != nil {
		c.conn = nil
		c.connected.Store(false)
		old.Close()
	}
	c.projectID = projectID
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	// A fresh Connect clears any terminal state from a previous loss. Any
	// reconnect loop still in flight is parked on an older epoch and will
	// abort rather than act on the cleared flag.
	c.closed.Store(false)

	conn, err := c.dial(ctx, c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect: dialing %s: %w", c.cfg.URL, err)
	}

	if err := c.join(conn, projectID); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		// A newer Connect or Disconnect took over while we were dialing.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.metrics.SetConnected(true)

	go c.readLoop(conn, epoch)

	c.logger.Info().Str("project", projectID).Msg("realtime channel connected")
	return nil
}

// join announces membership for the project on a freshly dialed connection.
func (c *Channel) join(conn wsConn, projectID string) error {
	data, err := json.Marshal(joinPayload{ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("connect: encoding join: %w", err)
	}
	msg, err := json.Marshal(frame{Event: "join_project", Data: data})
	if err != nil {
		return fmt.Errorf("connect: encoding join frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("connect: announcing membership: %w", err)
	}
	return nil
}

// Disconnect closes the channel. Idempotent; never triggers a reconnect.
func (c *Channel) Disconnect() {
	c.closed.Store(true)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.epoch++
	c.mu.Unlock()

	c.connected.Store(false)
	c.metrics.SetConnected(false)

	if conn != nil {
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		conn.Close()
	}
}

// IsConnected reports whether a live connection exists.
func (c *Channel) IsConnected() bool {
	return c.connected.Load()
}

// ProjectID returns the last requested project id.
func (c *Channel) ProjectID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

// isActive reports whether conn is still the channel's current connection.
// A read loop whose connection was superseded by a new Connect must exit
// without side effects.
func (c *Channel) isActive(conn wsConn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

// superseded reports whether any Connect or Disconnect happened after the
// connection with the given epoch was installed.
func (c *Channel) superseded(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch != epoch
}

func (c *Channel) readLoop(conn wsConn, epoch uint64) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !c.isActive(conn) {
				return // superseded by a newer Connect
			}

			c.connected.Store(false)
			c.metrics.SetConnected(false)

			if c.closed.Load() {
				return // client-initiated disconnect
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				// Server-initiated disconnect is never auto-retried.
				c.logger.Info().Err(err).Msg("server closed realtime channel")
				c.notices.Info("Realtime channel closed by server")
				return
			}

			c.logger.Warn().Err(err).Msg("realtime read error, scheduling reconnect")
			go c.reconnectLoop(epoch)
			return
		}

		c.dispatch(msg)
	}
}

// reconnectLoop retries with exponential backoff: delay = 2^attempt units
// (2, 4, 8, ... seconds), up to MaxReconnectAttempts. Exceeding the cap is
// terminal until the caller explicitly calls Connect again. The loop acts
// only while epoch is current: an explicit Connect or Disconnect during
// backoff supersedes it.
func (c *Channel) reconnectLoop(epoch uint64) {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		delay := time.Duration(1<<uint(attempt)) * c.cfg.BackoffUnit

		c.logger.Info().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("reconnecting realtime channel")

		if !c.sleep(delay) {
			return
		}
		if c.closed.Load() || c.superseded(epoch) {
			return
		}

		c.metrics.RecordReconnect()

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		conn, err := c.dial(ctx, c.cfg.URL)
		cancel()
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		c.mu.Lock()
		projectID := c.projectID
		c.mu.Unlock()

		if err := c.join(conn, projectID); err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("membership announce failed")
			conn.Close()
			continue
		}

		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()
		c.connected.Store(true)
		c.metrics.SetConnected(true)

		go c.readLoop(conn, epoch)

		c.logger.Info().Int("attempt", attempt).Msg("realtime channel reconnected")
		return
	}

	if c.closed.Load() || c.superseded(epoch) {
		return
	}

	c.metrics.RecordConnectionLost()
	c.logger.Error().
		Int("attempts", c.cfg.MaxReconnectAttempts).
		Msg("realtime connection lost, giving up")
	c.notices.Error("Connection lost. Re-open the project to reconnect.")
}
