// Package venue maintains one logical connection to the trading venue and
// translates purchase intents into raw settlement documents.
package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// State is the connection lifecycle. Transitions are serialized: only one
// in-flight transition at a time.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// Client is the venue surface the orchestrator drives. Its only contract is
// "eventually returns a settled contract or fails".
type Client interface {
	Connect(ctx context.Context) error
	Authorize(ctx context.Context, token string) error
	Purchase(ctx context.Context, p ContractParams) (json.RawMessage, error)
	Close() error
}

// Options configures a Connection. Zero fields take the defaults below.
type Options struct {
	URL                string
	AppID              string
	MaxConnectAttempts int
	RetryDelay         time.Duration
	HeartbeatInterval  time.Duration
	PongTimeout        time.Duration
	RequestTimeout     time.Duration
	CreationTimeout    time.Duration
	SettleTimeout      time.Duration
	RequestsPerSecond  float64
	Log                logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.MaxConnectAttempts <= 0 {
		o.MaxConnectAttempts = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 3 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 10 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.CreationTimeout <= 0 {
		o.CreationTimeout = 30 * time.Second
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = 5 * time.Minute
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return o
}

// Connection owns one websocket to the venue: bounded connect/reconnect,
// keep-alive heartbeat, and request/response correlation with timeouts.
type Connection struct {
	opts    Options
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     logrus.FieldLogger

	nextID atomic.Int64

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	pending  map[int64]chan response
	subs     map[string]chan json.RawMessage
	token    string
	stopped  bool
	hbCancel context.CancelFunc

	writeMu sync.Mutex
}

// NewConnection builds a Connection; it stays Disconnected until Connect.
func NewConnection(opts Options) *Connection {
	opts = opts.withDefaults()
	return &Connection{
		opts:    opts,
		dialer:  websocket.DefaultDialer,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:     opts.Log.WithField("component", "venue"),
		pending: make(map[int64]chan response),
		subs:    make(map[string]chan json.RawMessage),
	}
}

// State returns the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the venue with bounded attempts. Connecting while already
// Connecting or Open is a no-op.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxConnectAttempts; attempt++ {
		conn, _, err := c.dialer.DialContext(ctx, c.dialURL(), nil)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.state = StateOpen
			token := c.token
			c.mu.Unlock()

			go c.readPump(conn)
			c.startHeartbeat()

			// Re-authorize after a reconnect so streams keep working.
			if token != "" {
				if err := c.Authorize(ctx, token); err != nil {
					c.log.WithError(err).Warn("re-authorization after connect failed")
				}
			}
			c.log.WithField("attempt", attempt).Info("venue connection open")
			return nil
		}

		lastErr = err
		c.log.WithError(err).WithField("attempt", attempt).Warn("venue dial failed")

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return &ConnectionError{Op: "connect", Err: ctx.Err()}
		case <-time.After(c.opts.RetryDelay):
		}
	}

	c.setState(StateDisconnected)
	return fmt.Errorf("%w after %d attempts: %v", ErrMaxConnectAttempts, c.opts.MaxConnectAttempts, lastErr)
}

// Authorize exchanges the account token; the token is retained for automatic
// re-authorization on reconnect.
func (c *Connection) Authorize(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	params, _ := json.Marshal(map[string]string{"token": token, "app_id": c.opts.AppID})
	_, err := c.request(ctx, actionAuthorize, params)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	return nil
}

// Close stops the connection permanently; no reconnects follow.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.state = StateClosing
	conn := c.conn
	if c.hbCancel != nil {
		c.hbCancel()
		c.hbCancel = nil
	}
	c.failPendingLocked(ErrConnectionClosed)
	c.mu.Unlock()

	if conn != nil {
		// Connection may already be gone; a failed close handshake is fine.
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
	c.setState(StateDisconnected)
	return nil
}

// request sends one correlated request and waits for its response, bounded by
// ctx and the request timeout.
func (c *Connection) request(ctx context.Context, action string, params json.RawMessage) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ConnectionError{Op: action, Err: err}
	}

	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return nil, &ConnectionError{Op: action, Err: ErrConnectionClosed}
	}
	id := c.nextID.Add(1)
	ch := make(chan response, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(request{ID: id, Action: action, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", action, err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return nil, &ConnectionError{Op: action, Err: err}
	}

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Error != nil {
			if res.Error.Code == codeConnectionLost {
				return nil, &ConnectionError{Op: action, Err: errors.New(res.Error.Message)}
			}
			return nil, &APIError{Code: res.Error.Code, Message: res.Error.Message}
		}
		return res.Result, nil
	case <-timer.C:
		return nil, &ConnectionError{Op: action, Err: context.DeadlineExceeded}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readPump routes incoming frames to pending requests or subscriptions until
// the transport fails or closes.
func (c *Connection) readPump(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		var res response
		if err := json.Unmarshal(msg, &res); err != nil {
			c.log.WithError(err).Warn("undecodable venue frame dropped")
			continue
		}

		c.mu.Lock()
		if res.ID != 0 {
			if ch, ok := c.pending[res.ID]; ok {
				select {
				case ch <- res:
				default:
					// requester already timed out and stopped draining
				}
			}
		} else if res.Subscription != "" {
			if ch, ok := c.subs[res.Subscription]; ok {
				select {
				case ch <- res.Result:
				default:
					// drop rather than block the read pump
				}
			}
		}
		c.mu.Unlock()
	}
}

// handleDisconnect tears down a failed transport and schedules a reconnect
// unless the connection was explicitly stopped.
func (c *Connection) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	stopped := c.stopped || c.state == StateClosing
	c.conn = nil
	c.state = StateDisconnected
	if c.hbCancel != nil {
		c.hbCancel()
		c.hbCancel = nil
	}
	c.failPendingLocked(cause)
	c.mu.Unlock()

	_ = conn.Close()

	if stopped {
		return
	}

	c.log.WithError(cause).Warn("venue connection lost, scheduling reconnect")
	go func() {
		time.Sleep(c.opts.RetryDelay)
		if err := c.Connect(context.Background()); err != nil {
			c.log.WithError(err).Error("venue reconnect failed")
		}
	}()
}

const codeConnectionLost = "ConnectionLost"

// failPendingLocked rejects every in-flight request. Callers hold c.mu, so
// the send must never block: a requester that already timed out leaves its
// buffer full and never drains it.
func (c *Connection) failPendingLocked(cause error) {
	for id, ch := range c.pending {
		select {
		case ch <- response{Error: &errorBody{Code: codeConnectionLost, Message: cause.Error()}}:
		default:
		}
		delete(c.pending, id)
	}
}

// startHeartbeat issues keep-alive pings; a missed pong is a connection error
// and goes through the reconnect path rather than being ignored.
func (c *Connection) startHeartbeat() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.hbCancel != nil {
		c.hbCancel()
	}
	c.hbCancel = cancel
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, c.opts.PongTimeout)
				_, err := c.request(pingCtx, actionPing, nil)
				pingCancel()
				if err != nil && ctx.Err() == nil {
					c.log.WithError(err).Warn("heartbeat failed, forcing reconnect")
					c.mu.Lock()
					conn := c.conn
					c.mu.Unlock()
					if conn != nil {
						// Closing the socket makes the read pump run the
						// disconnect path.
						_ = conn.Close()
					}
					return
				}
			}
		}
	}()
}

// addSub registers a subscription stream.
func (c *Connection) addSub(id string) <-chan json.RawMessage {
	ch := make(chan json.RawMessage, 16)
	c.mu.Lock()
	c.subs[id] = ch
	c.mu.Unlock()
	return ch
}

// removeSub drops a subscription stream registration.
func (c *Connection) removeSub(id string) {
	c.mu.Lock()
	if ch, ok := c.subs[id]; ok {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) dialURL() string {
	if c.opts.AppID == "" {
		return c.opts.URL
	}
	return c.opts.URL + "?app_id=" + c.opts.AppID
}
