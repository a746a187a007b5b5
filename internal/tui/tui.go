// Package tui is the interactive terminal dashboard: an auth screen, then a
// live summary panel beside the chat with the expense assistant.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/dashboard"
	"smart-spend/internal/models"
)

const authTimeout = 30 * time.Second

// Factory builds a fresh, unauthenticated controller. It is called once at
// startup and again after every logout.
type Factory func() (*dashboard.Controller, error)

// Run blocks until the user quits.
func Run(factory Factory, logger *zap.Logger) error {
	m, err := newModel(factory, logger)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(model); ok && fm.ctrl != nil {
		fm.ctrl.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

type (
	authDoneMsg struct {
		ctrl *dashboard.Controller
		err  error
	}
	startedMsg struct {
		ctrl *dashboard.Controller
		err  error
	}
	changedMsg struct {
		ctrl *dashboard.Controller
	}
	submittedMsg struct {
		err error
	}
	loggedOutMsg struct {
		ctrl *dashboard.Controller
		err  error
	}
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldBudget
)

type model struct {
	factory Factory
	logger  *zap.Logger
	ctrl    *dashboard.Controller

	authenticated bool
	registering   bool
	busy          bool
	err           string

	fields []textinput.Model
	focus  int

	input    textinput.Model
	chat     viewport.Model
	messages int

	width  int
	height int
}

func newModel(factory Factory, logger *zap.Logger) (model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctrl, err := factory()
	if err != nil {
		return model{}, err
	}

	fields := make([]textinput.Model, 4)
	for i, placeholder := range []string{"Name", "Email", "Password", "Monthly budget"} {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 64
		ti.Width = 30
		fields[i] = ti
	}
	fields[fieldPassword].EchoMode = textinput.EchoPassword
	fields[fieldEmail].Focus()

	input := textinput.New()
	input.Placeholder = `Try "spent 250 on lunch at Subway" or "summary"`
	input.CharLimit = 500
	input.Width = 50

	m := model{
		factory: factory,
		logger:  logger,
		ctrl:    ctrl,
		fields:  fields,
		focus:   fieldEmail,
		input:   input,
		chat:    viewport.New(60, 20),
	}
	m.authenticated = ctrl.Restore()
	if m.authenticated {
		m.input.Focus()
	}
	return m, nil
}

func (m model) Init() tea.Cmd {
	if m.authenticated {
		return tea.Batch(textinput.Blink, start(m.ctrl))
	}
	return textinput.Blink
}

// --- Commands ---

func authenticate(ctrl *dashboard.Controller, registering bool, fields []textinput.Model) tea.Cmd {
	email := fields[fieldEmail].Value()
	password := fields[fieldPassword].Value()
	name := fields[fieldName].Value()
	budget := fields[fieldBudget].Value()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		if !registering {
			err := ctrl.Login(ctx, models.Credentials{Email: email, Password: password})
			return authDoneMsg{ctrl: ctrl, err: err}
		}

		amount := decimal.Zero
		if budget != "" {
			d, err := decimal.NewFromString(budget)
			if err != nil {
				return authDoneMsg{ctrl: ctrl, err: fmt.Errorf("invalid budget %q", budget)}
			}
			amount = d
		}
		err := ctrl.Register(ctx, models.Registration{
			Name:          name,
			Email:         email,
			Password:      password,
			MonthlyBudget: amount,
		})
		return authDoneMsg{ctrl: ctrl, err: err}
	}
}

func start(ctrl *dashboard.Controller) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{ctrl: ctrl, err: ctrl.Start()}
	}
}

// listen waits for the next dashboard or conversation change. A controller
// signals once more when it shuts down, so the wait always ends.
func listen(ctrl *dashboard.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctrl.Changes():
		case <-ctrl.ConversationChanges():
		}
		return changedMsg{ctrl: ctrl}
	}
}

func submit(ctrl *dashboard.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := ctrl.Submit(text)
		return submittedMsg{err: err}
	}
}

func logout(old *dashboard.Controller, factory Factory) tea.Cmd {
	return func() tea.Msg {
		err := old.Logout()
		ctrl, ferr := factory()
		if ferr != nil {
			return loggedOutMsg{err: ferr}
		}
		return loggedOutMsg{ctrl: ctrl, err: err}
	}
}

// --- Update ---

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+l":
			if m.authenticated && !m.busy {
				m.busy = true
				return m, logout(m.ctrl, m.factory)
			}
			return m, nil
		}
		if m.authenticated {
			return m.updateDashboard(msg)
		}
		return m.updateAuth(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderChat()
		return m, nil

	case authDoneMsg:
		if msg.ctrl != m.ctrl {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.authenticated = true
		m.fields[fieldPassword].Reset()
		m.input.Focus()
		return m, start(m.ctrl)

	case startedMsg:
		if msg.ctrl != m.ctrl {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("Dashboard start failed", zap.Error(msg.err))
			m.err = msg.err.Error()
		}
		return m, listen(m.ctrl)

	case changedMsg:
		if msg.ctrl != m.ctrl {
			return m, nil
		}
		m.renderChat()
		return m, listen(m.ctrl)

	case submittedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.err = ""
		}
		return m, nil

	case loggedOutMsg:
		m.busy = false
		if msg.ctrl == nil {
			m.err = msg.err.Error()
			return m, tea.Quit
		}
		if msg.err != nil {
			m.logger.Warn("Logout failed", zap.Error(msg.err))
		}
		m.ctrl = msg.ctrl
		m.authenticated = false
		m.registering = false
		m.err = ""
		m.messages = 0
		m.chat.SetContent("")
		m.input.Reset()
		m.input.Blur()
		for i := range m.fields {
			m.fields[i].Reset()
		}
		m.focusField(fieldEmail)
		return m, textinput.Blink
	}

	return m, nil
}

func (m model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "ctrl+r":
		m.registering = !m.registering
		m.err = ""
		if m.registering {
			m.focusField(fieldName)
		} else {
			m.focusField(fieldEmail)
		}
		return m, nil
	case "tab", "down":
		m.focusField(m.nextField(1))
		return m, nil
	case "shift+tab", "up":
		m.focusField(m.nextField(-1))
		return m, nil
	case "enter":
		if m.fields[fieldEmail].Value() == "" || m.fields[fieldPassword].Value() == "" {
			m.err = "Email and password are required"
			return m, nil
		}
		m.busy = true
		m.err = ""
		return m, authenticate(m.ctrl, m.registering, m.fields)
	}

	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.input.Value()
		m.input.Reset()
		return m, submit(m.ctrl, text)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// activeFields lists the auth inputs shown in the current mode, in tab order.
func (m model) activeFields() []int {
	if m.registering {
		return []int{fieldName, fieldEmail, fieldPassword, fieldBudget}
	}
	return []int{fieldEmail, fieldPassword}
}

func (m model) nextField(step int) int {
	active := m.activeFields()
	for i, f := range active {
		if f == m.focus {
			return active[(i+step+len(active))%len(active)]
		}
	}
	return active[0]
}

func (m *model) focusField(field int) {
	m.focus = field
	for i := range m.fields {
		if i == field {
			m.fields[i].Focus()
		} else {
			m.fields[i].Blur()
		}
	}
}

func (m *model) resize() {
	panelWidth := m.panelWidth()
	chatWidth := m.width - panelWidth - 6
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - 8
	if chatHeight < 5 {
		chatHeight = 5
	}
	m.chat.Width = chatWidth
	m.chat.Height = chatHeight
	m.input.Width = chatWidth - 4
}

func (m model) panelWidth() int {
	w := m.width / 3
	if w < 30 {
		w = 30
	}
	return w
}

// renderChat refreshes the viewport and follows the tail when messages arrive.
func (m *model) renderChat() {
	msgs := m.ctrl.Messages()
	m.chat.SetContent(renderMessages(msgs, m.chat.Width))
	if len(msgs) != m.messages {
		m.messages = len(msgs)
		m.chat.GotoBottom()
	}
}
