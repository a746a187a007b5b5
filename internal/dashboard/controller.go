// Package dashboard orchestrates the authenticated client: it owns the session
// and the dashboard snapshot, and routes realtime frames and confirmed
// mutations into a coordinated refresh.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/connection"
	"smart-spend/internal/conversation"
	"smart-spend/internal/models"
	"smart-spend/internal/protocol"
	"smart-spend/internal/session"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrClosed    = errors.New("controller is closed")
)

type API interface {
	Login(ctx context.Context, creds models.Credentials) (*models.Session, error)
	Register(ctx context.Context, reg models.Registration) (*models.Session, error)
	AddQuickExpense(ctx context.Context, expense models.QuickExpense) (*models.Expense, error)
	SaveGoal(ctx context.Context, goal models.Goal) (*models.Goal, error)
	UploadReceipt(ctx context.Context, userID, filename string, r io.Reader) (*models.Receipt, error)
	ImportCSV(ctx context.Context, userID, filename string, r io.Reader) (*models.ImportResult, error)
}

type Refresher interface {
	Refresh(ctx context.Context, userID string) (*models.Snapshot, error)
}

type Connector interface {
	Open(ctx context.Context, userID string, h connection.Handlers) (*connection.Channel, error)
	Send(text string) error
	Status() models.ConnectionStatus
	Close()
}

type SessionStore interface {
	Load() (*models.Session, error)
	Save(sess *models.Session) error
	Clear() error
}

type Deps struct {
	API       API
	Refresher Refresher
	Connector Connector
	Sessions  SessionStore
	AckDelay  time.Duration
	Logger    *zap.Logger
}

// Controller is single-use: after Logout or Close the UI builds a new one
// rather than resetting this one.
type Controller struct {
	api          API
	refresher    Refresher
	connector    Connector
	sessions     SessionStore
	logger       *zap.Logger
	conversation *conversation.Store

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu      sync.RWMutex
	session *models.Session
	closed  bool

	snapshot atomic.Pointer[models.Snapshot]
	changes  chan struct{}
}

func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:          deps.API,
		refresher:    deps.Refresher,
		connector:    deps.Connector,
		sessions:     deps.Sessions,
		logger:       logger,
		conversation: conversation.New(deps.AckDelay),
		ctx:          ctx,
		cancel:       cancel,
		changes:      make(chan struct{}, 1),
	}
}

// Restore loads a persisted session. It reports whether one was found.
func (c *Controller) Restore() bool {
	sess, err := c.sessions.Load()
	if errors.Is(err, session.ErrNotFound) {
		c.logger.Debug("No stored session")
		return false
	}
	if err != nil {
		c.logger.Warn("Stored session is unreadable", zap.Error(err))
		return false
	}
	c.setSession(sess)
	return true
}

func (c *Controller) Login(ctx context.Context, creds models.Credentials) error {
	sess, err := c.api.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	return c.establish(sess)
}

func (c *Controller) Register(ctx context.Context, reg models.Registration) error {
	sess, err := c.api.Register(ctx, reg)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	return c.establish(sess)
}

func (c *Controller) establish(sess *models.Session) error {
	if err := c.sessions.Save(sess); err != nil {
		return err
	}
	c.setSession(sess)
	c.logger.Info("Session established", zap.String("user_id", sess.UserID))
	return nil
}

func (c *Controller) setSession(sess *models.Session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
	c.notify()
}

// Session returns a copy of the active session, or nil.
func (c *Controller) Session() *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	sess := *c.session
	return &sess
}

func (c *Controller) Authenticated() bool {
	return c.Session() != nil
}

// Start performs the eager initial refresh and opens the realtime channel.
// Later refreshes only happen through Trigger.
func (c *Controller) Start() error {
	sess := c.Session()
	if sess == nil {
		return ErrNoSession
	}
	if c.isClosed() {
		return ErrClosed
	}

	c.Trigger()

	_, err := c.connector.Open(c.ctx, sess.UserID, connection.Handlers{
		OnFrame:  c.handleFrame,
		OnStatus: c.handleStatus,
	})
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	return nil
}

// Trigger starts one refresh in the background. Overlapping refreshes are not
// deduplicated or cancelled; whichever resolves last replaces the snapshot.
func (c *Controller) Trigger() {
	c.mu.Lock()
	if c.session == nil || c.closed {
		c.mu.Unlock()
		return
	}
	sess := *c.session
	// Registered under mu so shutdown cannot be waiting already.
	c.inflight.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.inflight.Done()
		if _, err := c.refresh(c.ctx, sess.UserID); err != nil {
			c.logger.Warn("Dashboard refresh failed", zap.String("user_id", sess.UserID), zap.Error(err))
		}
	}()
}

// RefreshNow refreshes synchronously and commits the result.
func (c *Controller) RefreshNow(ctx context.Context) (*models.Snapshot, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNoSession
	}
	return c.refresh(ctx, sess.UserID)
}

func (c *Controller) refresh(ctx context.Context, userID string) (*models.Snapshot, error) {
	snap, err := c.refresher.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.ctx.Err() != nil {
		return nil, ErrClosed
	}
	c.snapshot.Store(snap)
	c.notify()
	return snap, nil
}

// Wait blocks until every background refresh has settled.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) Snapshot() *models.Snapshot {
	return c.snapshot.Load()
}

// Submit echoes user input into the conversation and sends it. Blank input is
// ignored and reported as not sent. Nothing is echoed while the channel is not
// connected; a write that fails after the echo leaves the echo in place.
func (c *Controller) Submit(text string) (bool, error) {
	frame, ok := protocol.Encode(text)
	if !ok {
		return false, nil
	}
	if c.connector.Status() != models.StatusConnected {
		return false, connection.ErrNotConnected
	}

	// The echo goes in before the write so a reply can never precede it.
	c.conversation.Echo(frame)
	if err := c.connector.Send(frame); err != nil {
		c.logger.Warn("Failed to send message", zap.Error(err))
		return false, err
	}
	return true, nil
}

func (c *Controller) handleFrame(raw string) {
	ev := protocol.Decode(raw)
	c.logger.Debug("Frame received", zap.Stringer("kind", ev.Kind), zap.Int("messages", len(ev.Messages)))

	switch ev.Kind {
	case models.EventHistory:
		c.conversation.AppendHistory(ev.Messages)
	default:
		for _, m := range ev.Messages {
			c.conversation.Append(m)
		}
	}

	if ev.Kind == models.EventUpdate && ev.IsExpense {
		c.Trigger()
	}
}

func (c *Controller) handleStatus(status models.ConnectionStatus) {
	c.logger.Info("Connection status changed", zap.Stringer("status", status))
	c.notify()
}

func (c *Controller) Status() models.ConnectionStatus {
	return c.connector.Status()
}

func (c *Controller) Messages() []models.Message {
	return c.conversation.All()
}

func (c *Controller) Awaiting() bool {
	return c.conversation.Awaiting()
}

// ConversationChanges signals when the conversation log changes.
func (c *Controller) ConversationChanges() <-chan struct{} {
	return c.conversation.Changes()
}

// Changes signals when the session, snapshot or connection status changes.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) AddQuickExpense(ctx context.Context, amount decimal.Decimal, category, description, merchant string) (*models.Expense, error) {
	userID, err := c.numericUserID()
	if err != nil {
		return nil, err
	}
	expense, err := c.api.AddQuickExpense(ctx, models.QuickExpense{
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Description: description,
		Merchant:    merchant,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}
	c.Trigger()
	return expense, nil
}

func (c *Controller) SaveGoal(ctx context.Context, category string, target decimal.Decimal, period string) (*models.Goal, error) {
	userID, err := c.numericUserID()
	if err != nil {
		return nil, err
	}
	goal, err := c.api.SaveGoal(ctx, models.Goal{
		UserID:       userID,
		Category:     category,
		TargetAmount: target,
		Period:       period,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save goal: %w", err)
	}
	c.Trigger()
	return goal, nil
}

func (c *Controller) UploadReceipt(ctx context.Context, filename string, r io.Reader) (*models.Receipt, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNoSession
	}
	receipt, err := c.api.UploadReceipt(ctx, sess.UserID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}
	c.Trigger()
	return receipt, nil
}

func (c *Controller) ImportCSV(ctx context.Context, filename string, r io.Reader) (*models.ImportResult, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNoSession
	}
	result, err := c.api.ImportCSV(ctx, sess.UserID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to import csv: %w", err)
	}
	c.Trigger()
	return result, nil
}

func (c *Controller) numericUserID() (int64, error) {
	sess := c.Session()
	if sess == nil {
		return 0, ErrNoSession
	}
	id, err := strconv.ParseInt(sess.UserID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", sess.UserID, err)
	}
	return id, nil
}

// Logout clears the persisted session and tears the controller down.
func (c *Controller) Logout() error {
	c.shutdown()
	if err := c.sessions.Clear(); err != nil {
		return err
	}
	c.logger.Info("Logged out")
	return nil
}

// Close tears the controller down but keeps the persisted session.
func (c *Controller) Close() {
	c.shutdown()
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.connector.Close()
	c.inflight.Wait()
	c.conversation.Stop()

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	c.snapshot.Store(nil)
	c.notify()
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}
