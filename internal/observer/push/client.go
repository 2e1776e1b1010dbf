// Package push maintains a persistent websocket subscription to the
// realtime gateway and feeds decoded status events into the order store.
package push

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mon-resto/internal/gateway"
	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/models"
)

// ConnState is the observable connection lifecycle. The client never gives
// up: connected drops back to connecting, not to disconnected.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Filter narrows the subscription server-side. A zero Filter receives
// every order.
type Filter struct {
	OrderID string
	Role    string
}

type Client struct {
	gatewayURL string
	filter     Filter
	backoff    time.Duration
	// readTimeout is how long we tolerate silence before declaring the
	// connection dead; the gateway pings at half of this.
	readTimeout time.Duration

	store *store.Store
	mylog mylogger.Logger

	mu      sync.Mutex
	state   ConnState
	onState func(ConnState)
}

type Config struct {
	GatewayURL   string
	Filter       Filter
	Backoff      time.Duration
	PingInterval time.Duration
}

func New(cfg Config, st *store.Store, mylog mylogger.Logger) *Client {
	return &Client{
		gatewayURL:  cfg.GatewayURL,
		filter:      cfg.Filter,
		backoff:     cfg.Backoff,
		readTimeout: 2 * cfg.PingInterval,
		store:       st,
		mylog:       mylog,
		state:       StateDisconnected,
	}
}

// OnStateChange registers a callback fired on every connection state
// transition, so consumers can render a "live updates paused" indicator.
func (c *Client) OnStateChange(fn func(ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run connects and keeps reconnecting with a fixed backoff until ctx is
// cancelled. Every successful connect re-subscribes with the same filter,
// so a reconnect is invisible to the store apart from events caught up
// via the staleness gate.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.setState(StateConnecting)

		conn, err := c.dial(ctx)
		if err != nil {
			c.mylog.Action("push_connect_failed").Warn("Gateway unreachable, retrying", "error", err.Error(), "backoff", c.backoff.String())
			if !c.wait(ctx) {
				c.setState(StateDisconnected)
				return ctx.Err()
			}
			continue
		}

		c.setState(StateConnected)
		c.mylog.Action("push_connected").Info("Subscribed to status events", "order_id", c.filter.OrderID, "role", c.filter.Role)

		err = c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		c.setState(StateConnecting)
		c.mylog.Action("push_disconnected").Warn("Connection lost, reconnecting", "error", err.Error())
		if !c.wait(ctx) {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.gatewayURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if c.filter.OrderID != "" {
		q.Set("order_id", c.filter.OrderID)
	}
	if c.filter.Role != "" {
		q.Set("role", c.filter.Role)
	}
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(raw)
	}
}

// handleFrame decodes one gateway frame. Malformed frames are logged and
// dropped; they never tear the connection down.
func (c *Client) handleFrame(raw []byte) {
	var envelope gateway.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.mylog.Action("push_frame_malformed").Warn("Dropping undecodable frame", "error", err.Error())
		return
	}

	switch envelope.Type {
	case gateway.FrameKeepalive:
		// Receiving it already refreshed the read deadline.
	case gateway.FrameStatusEvent:
		var event models.StatusEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			c.mylog.Action("push_event_malformed").Warn("Dropping undecodable status event", "error", err.Error())
			return
		}
		c.store.ApplyEvent(event)
	default:
		c.mylog.Debug("Ignoring unknown frame type", "type", envelope.Type)
	}
}

func (c *Client) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

func (c *Client) setState(next ConnState) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}
