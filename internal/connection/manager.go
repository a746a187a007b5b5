// Package connection owns the realtime websocket channel for the active user.
package connection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smart-spend/internal/models"
)

var ErrNotConnected = errors.New("channel is not connected")

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

// Handlers receive channel callbacks. OnFrame is called from a single
// goroutine in delivery order and must not call Close on the same channel.
type Handlers struct {
	OnFrame  func(raw string)
	OnStatus func(status models.ConnectionStatus)
}

// Manager keeps at most one channel open. Opening a channel for a user tears
// down the previous one. Channels never reconnect on their own.
type Manager struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *zap.Logger

	opMu    sync.Mutex
	mu      sync.Mutex
	current *Channel
}

func NewManager(baseURL string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

// ChatURL is the channel address for one user.
func ChatURL(baseURL, userID string) string {
	return strings.TrimRight(baseURL, "/") + "/ws/chat/" + url.PathEscape(userID)
}

// Open starts a channel for userID. The dial runs in the background; the
// returned channel reports StatusConnecting until it completes.
func (m *Manager) Open(ctx context.Context, userID string, h Handlers) (*Channel, error) {
	if userID == "" {
		return nil, fmt.Errorf("failed to open channel: empty user id")
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	dialCtx, cancel := context.WithCancel(ctx)
	ch := &Channel{
		userID:   userID,
		url:      ChatURL(m.baseURL, userID),
		logger:   m.logger.With(zap.String("user_id", userID)),
		handlers: h,
		status:   models.StatusConnecting,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	m.current = ch
	m.mu.Unlock()

	ch.logger.Info("Opening channel", zap.String("url", ch.url))
	ch.emit(models.StatusConnecting)
	go ch.run(dialCtx, m.dialer)
	return ch, nil
}

// Close closes the current channel, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}

func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	if ch == nil {
		return models.StatusDisconnected
	}
	return ch.Status()
}

func (m *Manager) Send(text string) error {
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	return ch.Send(text)
}

// Channel is one session-scoped websocket connection.
type Channel struct {
	userID   string
	url      string
	logger   *zap.Logger
	handlers Handlers

	mu      sync.Mutex
	status  models.ConnectionStatus
	conn    *websocket.Conn
	cancel  context.CancelFunc
	closing bool

	writeMu sync.Mutex
	done    chan struct{}
}

func (c *Channel) UserID() string {
	return c.userID
}

func (c *Channel) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done is closed once the channel has stopped for good.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) run(ctx context.Context, dialer *websocket.Dialer) {
	defer close(c.done)
	defer c.cancel()

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if c.isClosing() {
			c.setStatus(models.StatusDisconnected)
			return
		}
		c.logger.Warn("Channel dial failed", zap.Error(err))
		c.setStatus(models.StatusFailed)
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		conn.Close()
		c.setStatus(models.StatusDisconnected)
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("Channel connected")
	c.setStatus(models.StatusConnected)
	c.readLoop(conn)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		if c.handlers.OnFrame != nil {
			c.handlers.OnFrame(string(data))
		}
	}
}

func (c *Channel) finish(err error) {
	var closeErr *websocket.CloseError
	switch {
	case c.isClosing():
		c.logger.Info("Channel closed")
		c.setStatus(models.StatusDisconnected)
	case errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure:
		c.logger.Info("Channel closed by server", zap.Int("code", closeErr.Code))
		c.setStatus(models.StatusDisconnected)
	default:
		c.logger.Warn("Channel transport error", zap.Error(err))
		c.setStatus(models.StatusFailed)
	}
}

// Send transmits one text frame.
func (c *Channel) Send(text string) error {
	c.mu.Lock()
	conn, status := c.conn, c.status
	c.mu.Unlock()
	if status != models.StatusConnected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// Close shuts the channel down and waits for its goroutine to exit. It is a
// no-op on a channel that is already disconnected or failed.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closing || c.status == models.StatusDisconnected || c.status == models.StatusFailed {
		c.mu.Unlock()
		return
	}
	c.closing = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
	}
	<-c.done
}

func (c *Channel) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// setStatus moves the channel to a new state. Disconnected and failed are
// terminal.
func (c *Channel) setStatus(status models.ConnectionStatus) {
	c.mu.Lock()
	if c.status == status || c.status == models.StatusDisconnected || c.status == models.StatusFailed {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.mu.Unlock()
	c.emit(status)
}

func (c *Channel) emit(status models.ConnectionStatus) {
	if c.handlers.OnStatus != nil {
		c.handlers.OnStatus(status)
	}
}
