package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"smart-spend/internal/models"
)

func (m model) View() string {
	if !m.authenticated {
		return m.authView()
	}
	return m.dashboardView()
}

func (m model) authView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Smart Spend") + "\n\n")
	if m.registering {
		s.WriteString("Login / → Register\n\n")
		s.WriteString("Name:     " + m.fields[fieldName].View() + "\n")
	} else {
		s.WriteString("→ Login / Register\n\n")
	}
	s.WriteString("Email:    " + m.fields[fieldEmail].View() + "\n")
	s.WriteString("Password: " + m.fields[fieldPassword].View() + "\n")
	if m.registering {
		s.WriteString("Budget:   " + m.fields[fieldBudget].View() + "\n")
	}
	s.WriteString("\n")

	if m.err != "" {
		s.WriteString(errorStyle.Render(m.err) + "\n")
	}
	if m.busy {
		s.WriteString(mutedStyle.Render("Signing in..."))
	} else {
		s.WriteString(mutedStyle.Render("Enter to submit • Tab to switch field • Ctrl+R toggle mode"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(s.String()))
}

func (m model) dashboardView() string {
	status := m.ctrl.Status()
	header := titleStyle.Render("Smart Spend") + "  " +
		statusStyle(status == models.StatusFailed, status == models.StatusConnected).Render(status.Text())
	if sess := m.ctrl.Session(); sess != nil {
		header += "  " + mutedStyle.Render(sess.Email)
	}

	panel := panelStyle.Width(m.panelWidth()).Render(renderSnapshot(m.ctrl.Snapshot()))

	footer := m.input.View()
	if m.ctrl.Awaiting() {
		footer = mutedStyle.Render("Smart Spend is typing...") + "\n" + footer
	}
	chat := chatStyle.Render(lipgloss.JoinVertical(lipgloss.Left, m.chat.View(), footer))

	help := mutedStyle.Render("Enter send • PgUp/PgDn scroll • Ctrl+L log out • Ctrl+C quit")
	if m.err != "" {
		help = errorStyle.Render(m.err) + "  " + help
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, panel, chat),
		help,
	)
}

func renderMessages(msgs []models.Message, width int) string {
	if len(msgs) == 0 {
		return mutedStyle.Render("No messages yet. Tell me what you spent.")
	}
	wrap := lipgloss.NewStyle().Width(width)

	var s strings.Builder
	for _, msg := range msgs {
		who := botStyle.Render("Bot:")
		if msg.Sender == models.SenderUser {
			who = userStyle.Render("You:")
		}
		s.WriteString(wrap.Render(who+" "+msg.Text) + "\n")
	}
	return s.String()
}

func renderSnapshot(snap *models.Snapshot) string {
	if snap == nil {
		return mutedStyle.Render("Loading dashboard...")
	}
	sum := snap.Summary

	var s strings.Builder
	s.WriteString(titleStyle.Render("This month") + "\n")
	s.WriteString(fmt.Sprintf("Spent      %s\n", money(sum.Total)))
	if sum.MonthlyBudget != nil {
		s.WriteString(fmt.Sprintf("Budget     %s\n", money(*sum.MonthlyBudget)))
		remaining := okStyle.Render(money(sum.RemainingBudget))
		if sum.IsOverBudget {
			remaining = errorStyle.Render(money(sum.RemainingBudget))
		}
		s.WriteString("Remaining  " + remaining + "\n")
		s.WriteString(fmt.Sprintf("Used       %s%%\n", sum.BudgetUsagePercent.StringFixed(1)))
	}
	if alert := sum.Alert(); alert != "" {
		style := warnStyle
		if sum.IsOverBudget {
			style = errorStyle
		}
		s.WriteString(style.Render("! "+alert) + "\n")
	}

	if len(sum.Categories) > 0 {
		names := make([]string, 0, len(sum.Categories))
		for name := range sum.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		s.WriteString("\n" + titleStyle.Render("Categories") + "\n")
		for _, name := range names {
			s.WriteString(fmt.Sprintf("%-14s %s\n", name, money(sum.Categories[name])))
		}
	}

	s.WriteString("\n" + titleStyle.Render("Forecast") + "\n")
	if snap.Forecast.Error != "" {
		s.WriteString(mutedStyle.Render(snap.Forecast.Error) + "\n")
	}
	for _, p := range snap.Forecast.History {
		s.WriteString(fmt.Sprintf("%-10s %s\n", p.Date, money(p.Amount)))
	}
	for _, p := range snap.Forecast.Forecast {
		s.WriteString(fmt.Sprintf("%-10s %s %s\n", p.Date, money(p.Amount), mutedStyle.Render("projected")))
	}
	return s.String()
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-₹" + d.Neg().StringFixed(2)
	}
	return "₹" + d.StringFixed(2)
}
