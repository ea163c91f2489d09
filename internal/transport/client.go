// Package transport owns the single logical connection to the remote
// analysis engine: one WebSocket per session id, linear-backoff
// reconnection on unexpected drops, and fire-and-forget outbound
// commands. Failures surface as state, never as panics.
package transport

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aegis-watch/console/internal/bus"
	"github.com/aegis-watch/console/internal/clock"
	"github.com/aegis-watch/console/internal/event"
)

// State is the connection lifecycle phase.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

var stateNames = map[State]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Reconnect defaults.
const (
	DefaultBaseDelay   = time.Second
	DefaultMaxAttempts = 5
)

// ErrNotConnected is returned by Send while not connected. The command
// is discarded, never queued: a stale mediation command is worse than a
// dropped one.
var ErrNotConnected = errors.New("transport: not connected")

// ErrReconnectsExhausted is surfaced via Err after maxAttempts
// consecutive reconnect failures. A fresh Connect clears it.
var ErrReconnectsExhausted = errors.New("transport: reconnect attempts exhausted")

// Client maintains one logical connection per session id. Inbound frames
// are parsed and published to the router in arrival order; malformed
// frames are dropped and logged.
type Client struct {
	baseURL     string
	router      *bus.Router
	dialer      Dialer
	clk         clock.Clock
	baseDelay   time.Duration
	maxAttempts int

	mu             sync.Mutex
	st             State
	sessionID      string
	conn           Conn
	gen            int // bumped on teardown; invalidates stale dials, loops, timers
	intentional    bool
	attempts       int
	reconnectTimer clock.Timer
	lastErr        error
}

// Option configures a Client.
type Option func(*Client)

// WithDialer substitutes the connection dialer (tests).
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithBaseDelay sets the reconnect backoff unit; attempt n waits n×d.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithMaxAttempts caps consecutive reconnect attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewClient returns a disconnected client. baseURL is the engine's
// WebSocket origin, e.g. "ws://127.0.0.1:8080".
func NewClient(baseURL string, router *bus.Router, clk clock.Clock, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		router:      router,
		dialer:      wsDialer{},
		clk:         clk,
		baseDelay:   DefaultBaseDelay,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) sessionURL(sessionID string) string {
	return c.baseURL + "/ws/session/" + sessionID
}

// Connect opens the connection for sessionID. Idempotent while already
// connected to the same id; a different id disconnects the old session
// first. Returns once the connection is open, or with the dial error.
// There is no per-attempt dial timeout.
func (c *Client) Connect(sessionID string) error {
	c.mu.Lock()
	if c.st == Connected && c.sessionID == sessionID {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	c.sessionID = sessionID
	c.intentional = false
	c.attempts = 0
	c.lastErr = nil
	c.st = Connecting
	gen := c.gen
	url := c.sessionURL(sessionID)
	c.mu.Unlock()

	conn, err := c.dialer.Dial(url)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Disconnect (or a newer Connect) superseded this dial.
		if conn != nil {
			conn.Close()
		}
		return fmt.Errorf("transport: connect to %s superseded", sessionID)
	}
	if err != nil {
		c.st = Disconnected
		c.lastErr = err
		return fmt.Errorf("dial %s: %w", url, err)
	}
	c.conn = conn
	c.st = Connected
	go c.readLoop(conn, gen)
	return nil
}

// Disconnect marks the close as intentional: the connection is torn
// down, any pending reconnect is cancelled, and no further attempts are
// scheduled. Safe to call from inside an event handler.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// teardownLocked closes the current connection and invalidates every
// in-flight dial, read loop and reconnect timer via the generation.
func (c *Client) teardownLocked() {
	c.gen++
	c.intentional = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.st = Disconnected
}

// Send transmits an outbound command while connected. The wire shape is
// {"cmd": cmd, ...data}; there is no acknowledgment contract.
func (c *Client) Send(cmd string, data map[string]any) error {
	c.mu.Lock()
	if c.st != Connected || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	msg := make(map[string]any, len(data)+1)
	for k, v := range data {
		msg[k] = v
	}
	msg["cmd"] = cmd
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

// State returns the current connection phase.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Err returns the most recent transport failure, or nil. Exhausted
// reconnects report ErrReconnectsExhausted until the next Connect.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SessionID returns the id of the current (or last requested) session.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) readLoop(conn Conn, gen int) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(conn, gen, err)
			return
		}
		ev, perr := event.Parse(data)
		if perr != nil {
			log.Printf("transport: dropping frame: %v", perr)
			continue
		}
		c.router.Publish(ev)
	}
}

func (c *Client) handleClosed(conn Conn, gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.conn != conn {
		return // superseded by a newer connection
	}
	conn.Close()
	c.conn = nil
	if c.intentional {
		c.st = Disconnected
		return
	}
	c.lastErr = err
	c.scheduleReconnectLocked()
}

func (c *Client) scheduleReconnectLocked() {
	c.attempts++
	if c.attempts > c.maxAttempts {
		c.st = Disconnected
		c.lastErr = ErrReconnectsExhausted
		log.Printf("transport: giving up after %d reconnect attempts", c.maxAttempts)
		return
	}
	c.st = Connecting
	delay := c.baseDelay * time.Duration(c.attempts)
	gen := c.gen
	log.Printf("transport: connection lost, reconnect %d/%d in %v", c.attempts, c.maxAttempts, delay)
	c.reconnectTimer = c.clk.AfterFunc(delay, func() { c.reconnect(gen) })
}

func (c *Client) reconnect(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.intentional || c.st != Connecting {
		c.mu.Unlock()
		return
	}
	url := c.sessionURL(c.sessionID)
	c.mu.Unlock()

	conn, err := c.dialer.Dial(url)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.intentional {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.lastErr = err
		c.scheduleReconnectLocked()
		return
	}
	c.conn = conn
	c.st = Connected
	c.attempts = 0
	go c.readLoop(conn, gen)
}
