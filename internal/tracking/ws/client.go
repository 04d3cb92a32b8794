package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solmint/relay/internal/core/domain"
)

// ClientConfig holds tracking client settings.
type ClientConfig struct {
	URL   string // ws:// or wss:// endpoint
	Token string

	// RestURL enables the HTTP polling fallback used while the
	// connection is down. Empty disables polling.
	RestURL string

	// Reconnect backoff. Zero values take defaults.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PollInterval   time.Duration
}

// Client maintains a tracking session over WebSocket: it registers
// interest per messageId, receives ordered per-ID updates, and
// re-registers after reconnecting. Connection loss degrades to a slower
// HTTP polling fallback; reconnect attempts back off exponentially.
type Client struct {
	cfg  ClientConfig
	log  *slog.Logger
	http *http.Client

	mu       sync.Mutex
	conn     *websocket.Conn
	state    string
	tracked  map[string]struct{}
	onUpdate func(domain.StatusUpdate)
	onState  func(string)

	stop chan struct{}
	done chan struct{}
}

// NewClient creates a tracking client. It does not connect until Start.
func NewClient(cfg ClientConfig) *Client {
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		log:     slog.Default(),
		http:    &http.Client{Timeout: 10 * time.Second},
		state:   StateClosed,
		tracked: make(map[string]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnUpdate registers the update callback. Must be called before Start.
func (c *Client) OnUpdate(fn func(domain.StatusUpdate)) { c.onUpdate = fn }

// OnStateChange registers the connection-state callback.
func (c *Client) OnStateChange(fn func(string)) { c.onState = fn }

// State returns the current connection state.
func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start runs the connect/read/reconnect loop until ctx is done or Close
// is called.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

// Close shuts the client down.
func (c *Client) Close() {
	c.mu.Lock()
	select {
	case <-c.stop:
		c.mu.Unlock()
		return
	default:
		close(c.stop)
	}
	c.setStateLocked(StateClosing)
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	<-c.done
}

// Track registers interest in a messageId. Re-sent automatically on
// reconnect.
func (c *Client) Track(messageID string) error {
	c.mu.Lock()
	c.tracked[messageID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil // sent on reconnect
	}
	return conn.WriteJSON(ClientFrame{Type: TypeTrack, MessageID: messageID})
}

// Untrack drops interest in a messageId.
func (c *Client) Untrack(messageID string) error {
	c.mu.Lock()
	delete(c.tracked, messageID)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.WriteJSON(ClientFrame{Type: TypeUntrack, MessageID: messageID})
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		default:
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateClosed)
			delay := c.backoff(attempt)
			attempt++
			c.log.Debug("WebSocket dial failed, backing off",
				"error", err, "delay", delay, "attempt", attempt)

			if err := c.pollUntil(ctx, delay); err != nil {
				return
			}
			continue
		}

		attempt = 0
		c.setState(StateOpen)
		c.resubscribe(conn)
		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.setState(StateClosed)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	if c.cfg.Token != "" {
		if err := conn.WriteJSON(ClientFrame{Type: TypeAuthenticate, Token: c.cfg.Token}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("send authenticate: %w", err)
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return conn, nil
}

func (c *Client) resubscribe(conn *websocket.Conn) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.tracked))
	for id := range c.tracked {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := conn.WriteJSON(ClientFrame{Type: TypeTrack, MessageID: id}); err != nil {
			c.log.Warn("Failed to re-track after reconnect", "messageId", id, "error", err)
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-c.stop:
			return
		default:
		}

		var frame ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			conn.Close()
			return
		}

		switch frame.Type {
		case TypeMessageUpdate:
			c.deliver(frame)
		case TypeError:
			c.log.Warn("Server error frame", "message", frame.Message)
		}
	}
}

func (c *Client) deliver(frame ServerFrame) {
	if c.onUpdate == nil {
		return
	}
	ts, _ := time.Parse(time.RFC3339, frame.Timestamp)
	c.onUpdate(domain.StatusUpdate{
		MessageID: frame.MessageID,
		Status:    domain.MessageStatus(frame.Status),
		Timestamp: ts,
		Data:      frame.Data,
		Error:     frame.Error,
	})
}

// pollUntil polls the REST surface for tracked messages while waiting
// out a reconnect delay.
func (c *Client) pollUntil(ctx context.Context, delay time.Duration) error {
	deadline := time.NewTimer(delay)
	defer deadline.Stop()

	interval := c.cfg.PollInterval
	if interval > delay {
		interval = delay
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return fmt.Errorf("client closed")
		case <-deadline.C:
			return nil
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Client) pollOnce(ctx context.Context) {
	if c.cfg.RestURL == "" {
		return
	}

	c.mu.Lock()
	ids := make([]string, 0, len(c.tracked))
	for id := range c.tracked {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		msg, err := c.fetchMessage(ctx, id)
		if err != nil {
			c.log.Debug("Polling fallback fetch failed", "messageId", id, "error", err)
			continue
		}
		c.deliver(ServerFrame{
			Type:      TypeMessageUpdate,
			MessageID: msg.ID,
			Status:    string(msg.Status),
			Timestamp: msg.UpdatedAt.UTC().Format(time.RFC3339),
			Data:      msg.Data,
			Error:     msg.Error,
		})
	}
}

func (c *Client) fetchMessage(ctx context.Context, id string) (*domain.Message, error) {
	url := fmt.Sprintf("%s/cross-chain/messages/%s", c.cfg.RestURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	var msg domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(c.cfg.MaxBackoff) {
		delay = float64(c.cfg.MaxBackoff)
	}
	return time.Duration(delay)
}

func (c *Client) setState(state string) {
	c.mu.Lock()
	c.setStateLocked(state)
	c.mu.Unlock()
}

func (c *Client) setStateLocked(state string) {
	if c.state == state {
		return
	}
	c.state = state
	if c.onState != nil {
		go c.onState(state)
	}
}
