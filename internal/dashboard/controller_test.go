package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"smart-spend/internal/connection"
	"smart-spend/internal/models"
	"smart-spend/internal/session"
)

type fakeConnector struct {
	mu       sync.Mutex
	opened   []string
	handlers connection.Handlers
	sent     []string
	sendErr  error
	sendGate chan struct{}
	status   models.ConnectionStatus
	closed   int
}

func (f *fakeConnector) Open(ctx context.Context, userID string, h connection.Handlers) (*connection.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, userID)
	f.handlers = h
	f.status = models.StatusConnected
	return nil, nil
}

func (f *fakeConnector) Send(text string) error {
	f.mu.Lock()
	gate := f.sendGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeConnector) Status() models.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeConnector) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.status = models.StatusDisconnected
}

func (f *fakeConnector) deliver(raw string) {
	f.mu.Lock()
	h := f.handlers
	f.mu.Unlock()
	h.OnFrame(raw)
}

type refreshResult struct {
	snap    *models.Snapshot
	err     error
	release chan struct{}
}

type fakeRefresher struct {
	mu      sync.Mutex
	calls   int
	results []refreshResult
	started chan int
}

func (f *fakeRefresher) Refresh(ctx context.Context, userID string) (*models.Snapshot, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	res := refreshResult{snap: snapshot(0, "default")}
	if i < len(f.results) {
		res = f.results[i]
	}
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- i
	}
	if res.release != nil {
		select {
		case <-res.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res.snap, res.err
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAPI struct {
	fail error
}

func (f *fakeAPI) Login(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.Session{UserID: "7", Email: creds.Email}, nil
}

func (f *fakeAPI) Register(ctx context.Context, reg models.Registration) (*models.Session, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.Session{UserID: "8", Email: reg.Email, MonthlyBudget: reg.MonthlyBudget}, nil
}

func (f *fakeAPI) AddQuickExpense(ctx context.Context, e models.QuickExpense) (*models.Expense, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.Expense{ID: 1, UserID: e.UserID, Amount: e.Amount, Category: e.Category}, nil
}

func (f *fakeAPI) SaveGoal(ctx context.Context, g models.Goal) (*models.Goal, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	g.ID = 1
	return &g, nil
}

func (f *fakeAPI) UploadReceipt(ctx context.Context, userID, filename string, r io.Reader) (*models.Receipt, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.Receipt{Amount: decimal.NewFromInt(45), Category: "Food"}, nil
}

func (f *fakeAPI) ImportCSV(ctx context.Context, userID, filename string, r io.Reader) (*models.ImportResult, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.ImportResult{Imported: 3}, nil
}

type memSessions struct {
	mu      sync.Mutex
	sess    *models.Session
	loadErr error
}

func (m *memSessions) Load() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.sess == nil {
		return nil, session.ErrNotFound
	}
	s := *m.sess
	return &s, nil
}

func (m *memSessions) Save(sess *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *sess
	m.sess = &s
	return nil
}

func (m *memSessions) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

func snapshot(total int64, forecastTag string) *models.Snapshot {
	return &models.Snapshot{
		Summary: models.Summary{Total: decimal.NewFromInt(total)},
		Forecast: models.Forecast{
			Forecast: []models.ForecastPoint{{Date: forecastTag, Amount: decimal.NewFromInt(total)}},
		},
	}
}

type harness struct {
	ctrl      *Controller
	conn      *fakeConnector
	refresher *fakeRefresher
	api       *fakeAPI
	sessions  *memSessions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		conn:      &fakeConnector{status: models.StatusDisconnected},
		refresher: &fakeRefresher{},
		api:       &fakeAPI{},
		sessions:  &memSessions{},
	}
	h.ctrl = New(Deps{
		API:       h.api,
		Refresher: h.refresher,
		Connector: h.conn,
		Sessions:  h.sessions,
		AckDelay:  time.Hour,
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) startLoggedIn(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Login(context.Background(), models.Credentials{Email: "a@b.c", Password: "secret1"}))
	require.NoError(t, h.ctrl.Start())
	h.ctrl.Wait()
}

func TestLoginPersistsSessionAndStartRefreshesOnce(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.ctrl.Authenticated())
	assert.ErrorIs(t, h.ctrl.Start(), ErrNoSession)

	h.startLoggedIn(t)

	assert.True(t, h.ctrl.Authenticated())
	stored, err := h.sessions.Load()
	require.NoError(t, err)
	assert.Equal(t, "7", stored.UserID)
	assert.Equal(t, []string{"7"}, h.conn.opened)
	assert.Equal(t, 1, h.refresher.count())
	require.NotNil(t, h.ctrl.Snapshot())
}

func TestLoginFailureLeavesNoSession(t *testing.T) {
	h := newHarness(t)
	h.api.fail = errors.New("Invalid credentials")

	err := h.ctrl.Login(context.Background(), models.Credentials{Email: "a@b.c", Password: "x"})
	assert.Error(t, err)
	assert.False(t, h.ctrl.Authenticated())
	_, err = h.sessions.Load()
	assert.Error(t, err)
}

func TestRestoreUsesStoredSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.Save(&models.Session{UserID: "3"}))

	require.True(t, h.ctrl.Restore())
	assert.Equal(t, "3", h.ctrl.Session().UserID)
}

func TestHistoryFrameIntoEmptyConversation(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)

	h.conn.deliver(`{"type":"history","data":[{"message":"spent 200 on food","response":"Logged ₹200 for food"}]}`)

	msgs := h.ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "spent 200 on food", msgs[0].Text)
	assert.Equal(t, models.SenderBot, msgs[1].Sender)
	assert.Equal(t, "Logged ₹200 for food", msgs[1].Text)
}

func TestExpenseUpdateTriggersExactlyOneRefresh(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	before := h.refresher.count()

	h.conn.deliver(`{"type":"update","data":"Logged ₹500 groceries","is_expense":true}`)
	h.ctrl.Wait()

	assert.Equal(t, before+1, h.refresher.count())
	msgs := h.ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.BotMessage("Logged ₹500 groceries").Text, msgs[0].Text)
	assert.Equal(t, models.SenderBot, msgs[0].Sender)
}

func TestNonExpenseFramesDoNotRefresh(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	before := h.refresher.count()

	h.conn.deliver(`{"type":"update","data":"Hi there","is_expense":false}`)
	h.conn.deliver(`{"type":"error","data":"boom"}`)
	h.conn.deliver(`pong`)
	h.ctrl.Wait()

	assert.Equal(t, before, h.refresher.count())
	msgs := h.ctrl.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hi there", msgs[0].Text)
	assert.Equal(t, "Error: boom", msgs[1].Text)
	assert.Equal(t, "pong", msgs[2].Text)
}

func TestWhitespaceSubmitSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)

	sent, err := h.ctrl.Submit("  ")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, h.conn.sent)
	assert.Empty(t, h.ctrl.Messages())
	assert.False(t, h.ctrl.Awaiting())
}

func TestSubmitEchoesTrimmedText(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)

	sent, err := h.ctrl.Submit("  spent 200 on food ")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"spent 200 on food"}, h.conn.sent)

	msgs := h.ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "spent 200 on food", msgs[0].Text)
	assert.True(t, h.ctrl.Awaiting())
}

func TestSubmitOnDeadChannelFails(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	h.conn.mu.Lock()
	h.conn.status = models.StatusFailed
	h.conn.mu.Unlock()

	sent, err := h.ctrl.Submit("hello")
	assert.ErrorIs(t, err, connection.ErrNotConnected)
	assert.False(t, sent)
	assert.Empty(t, h.conn.sent)
	assert.Empty(t, h.ctrl.Messages())
}

func TestSubmitWriteFailureKeepsEcho(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	h.conn.mu.Lock()
	h.conn.sendErr = errors.New("broken pipe")
	h.conn.mu.Unlock()

	sent, err := h.ctrl.Submit("hello")
	assert.Error(t, err)
	assert.False(t, sent)

	msgs := h.ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestSlowSendDoesNotBlockInboundFrames(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	gate := make(chan struct{})
	h.conn.mu.Lock()
	h.conn.sendGate = gate
	h.conn.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Submit("spent 90 on tea")
		done <- err
	}()

	require.Eventually(t, func() bool { return len(h.ctrl.Messages()) == 1 }, time.Second, time.Millisecond)

	delivered := make(chan struct{})
	go func() {
		h.conn.deliver(`{"type":"update","data":"Noted","is_expense":false}`)
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("inbound frame waited for the outbound write")
	}

	close(gate)
	require.NoError(t, <-done)

	msgs := h.ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Noted", msgs[1].Text)
}

func TestOverlappingRefreshesLastResolvedWins(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)

	first := make(chan struct{})
	second := make(chan struct{})
	h.refresher.mu.Lock()
	base := h.refresher.calls
	h.refresher.results = make([]refreshResult, base+2)
	for i := 0; i < base; i++ {
		h.refresher.results[i] = refreshResult{snap: snapshot(0, "default")}
	}
	h.refresher.results[base] = refreshResult{snap: snapshot(100, "first"), release: first}
	h.refresher.results[base+1] = refreshResult{snap: snapshot(150, "second"), release: second}
	h.refresher.started = make(chan int, 2)
	h.refresher.mu.Unlock()

	h.ctrl.Trigger()
	h.ctrl.Trigger()
	<-h.refresher.started
	<-h.refresher.started

	close(second)
	require.Eventually(t, func() bool {
		s := h.ctrl.Snapshot()
		return s != nil && s.Summary.Total.Equal(decimal.NewFromInt(150))
	}, time.Second, 5*time.Millisecond)

	close(first)
	h.ctrl.Wait()

	final := h.ctrl.Snapshot()
	require.NotNil(t, final)
	assert.True(t, final.Summary.Total.Equal(decimal.NewFromInt(100)))
	require.Len(t, final.Forecast.Forecast, 1)
	assert.Equal(t, "first", final.Forecast.Forecast[0].Date)
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	before := h.ctrl.Snapshot()
	require.NotNil(t, before)

	h.refresher.mu.Lock()
	h.refresher.results = make([]refreshResult, h.refresher.calls+1)
	h.refresher.results[h.refresher.calls] = refreshResult{err: errors.New("forecast down")}
	h.refresher.mu.Unlock()

	h.ctrl.Trigger()
	h.ctrl.Wait()

	assert.Same(t, before, h.ctrl.Snapshot())
}

func TestMutationsTriggerRefresh(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	ctx := context.Background()

	mutations := []struct {
		name string
		run  func() error
	}{
		{"quick expense", func() error {
			_, err := h.ctrl.AddQuickExpense(ctx, decimal.NewFromInt(20), "Food", "lunch", "")
			return err
		}},
		{"goal", func() error {
			_, err := h.ctrl.SaveGoal(ctx, "Food", decimal.NewFromInt(300), "monthly")
			return err
		}},
		{"receipt", func() error {
			_, err := h.ctrl.UploadReceipt(ctx, "r.txt", strings.NewReader("TOTAL 45"))
			return err
		}},
		{"csv", func() error {
			_, err := h.ctrl.ImportCSV(ctx, "x.csv", strings.NewReader("date,amount\n"))
			return err
		}},
	}

	for _, m := range mutations {
		before := h.refresher.count()
		require.NoError(t, m.run(), m.name)
		h.ctrl.Wait()
		assert.Equal(t, before+1, h.refresher.count(), m.name)
	}

	h.api.fail = errors.New("rejected")
	for _, m := range mutations {
		before := h.refresher.count()
		require.Error(t, m.run(), m.name)
		h.ctrl.Wait()
		assert.Equal(t, before, h.refresher.count(), m.name)
	}
}

func TestLogoutTearsEverythingDown(t *testing.T) {
	h := newHarness(t)
	h.startLoggedIn(t)
	h.conn.deliver(`{"type":"update","data":"hello"}`)

	require.NoError(t, h.ctrl.Logout())

	assert.False(t, h.ctrl.Authenticated())
	assert.Nil(t, h.ctrl.Snapshot())
	assert.Equal(t, 1, h.conn.closed)
	_, err := h.sessions.Load()
	assert.Error(t, err)

	before := h.refresher.count()
	h.ctrl.Trigger()
	h.ctrl.Wait()
	assert.Equal(t, before, h.refresher.count())
	assert.ErrorIs(t, h.ctrl.Start(), ErrNoSession)
}

func TestTriggerRacingCloseIsSafe(t *testing.T) {
	for i := 0; i < 200; i++ {
		h := newHarness(t)
		require.NoError(t, h.ctrl.Login(context.Background(), models.Credentials{Email: "a@b.c", Password: "secret1"}))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = h.ctrl.AddQuickExpense(context.Background(), decimal.NewFromInt(5), "Food", "", "")
		}()
		go func() {
			defer wg.Done()
			h.ctrl.Close()
		}()
		wg.Wait()
		h.ctrl.Wait()
	}
}

func TestRestoreLogsUnreadableSession(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sessions := &memSessions{loadErr: errors.New("failed to decode session: unexpected EOF")}
	ctrl := New(Deps{
		API:       &fakeAPI{},
		Refresher: &fakeRefresher{},
		Connector: &fakeConnector{},
		Sessions:  sessions,
		Logger:    zap.New(core),
	})
	defer ctrl.Close()

	assert.False(t, ctrl.Restore())
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Stored session is unreadable", warnings[0].Message)

	sessions.loadErr = nil
	assert.False(t, ctrl.Restore())
	assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1, "a missing session is not a warning")
}
