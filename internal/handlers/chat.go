package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smart-spend/internal/llm"
	"smart-spend/internal/models"
	"smart-spend/internal/nlp"
)

const writeWait = 10 * time.Second

type chatFrame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	IsExpense *bool       `json:"is_expense,omitempty"`
}

type historyItem struct {
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatSocket handles GET /ws/chat/{user_id}. It replays recent history once,
// then answers each inbound text frame with an update or error frame.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.Int64("user_id", userID))
	logger.Info("Chat connected")

	if err := h.sendHistory(conn, userID); err != nil {
		logger.Warn("Failed to send history", zap.Error(err))
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Chat read failed", zap.Error(err))
			} else {
				logger.Info("Chat disconnected")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		text := string(data)
		reply, isExpense, err := h.processMessage(r.Context(), userID, text)
		if err == nil {
			err = h.repo.SaveChat(userID, text, reply)
		}
		if err != nil {
			logger.Error("Failed to process chat message", zap.Error(err))
			if werr := writeFrame(conn, chatFrame{Type: "error", Data: err.Error()}); werr != nil {
				return
			}
			continue
		}

		if err := writeFrame(conn, chatFrame{Type: "update", Data: reply, IsExpense: &isExpense}); err != nil {
			logger.Warn("Chat write failed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) sendHistory(conn *websocket.Conn, userID int64) error {
	entries, err := h.repo.RecentChats(userID, historyLimit)
	if err != nil {
		return writeFrame(conn, chatFrame{Type: "error", Data: "History error: " + err.Error()})
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		item := historyItem{Message: e.Message, Response: e.Response}
		if !e.Timestamp.IsZero() {
			item.Timestamp = e.Timestamp.Format("2006-01-02T15:04:05.000000")
		}
		items = append(items, item)
	}
	return writeFrame(conn, chatFrame{Type: "history", Data: items})
}

func writeFrame(conn *websocket.Conn, frame chatFrame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// processMessage records an expense when the text names an amount, answers
// budget questions, and otherwise explains what it understands.
func (h *Handler) processMessage(ctx context.Context, userID int64, text string) (string, bool, error) {
	now := h.now()

	if parsed, ok := nlp.ParseExpense(text, now); ok {
		return h.addChatExpense(userID, text, parsed)
	}
	if nlp.IsSummaryQuery(text) {
		return h.summaryReply(userID, now)
	}

	if h.llm != nil {
		reading, err := h.llm.Interpret(ctx, text, now)
		switch {
		case err != nil:
			h.logger.Warn("LLM interpretation failed", zap.Int64("user_id", userID), zap.Error(err))
		case reading.Valid():
			return h.addChatExpense(userID, text, fromInterpretation(reading.Expense, now))
		case reading.Intent == llm.IntentQuerySummary:
			return h.summaryReply(userID, now)
		}
	}

	return `I couldn't find an amount in that. Try "spent 200 on lunch" or ask "how much have I spent?"`, false, nil
}

func (h *Handler) addChatExpense(userID int64, text string, parsed *nlp.ParsedExpense) (string, bool, error) {
	expense, err := h.createExpense(userID, parsed.Amount, parsed.Category, text, parsed.Merchant, parsed.Date)
	if err != nil {
		return fmt.Sprintf("Error adding expense: %v", err), false, nil
	}
	reply := fmt.Sprintf("✅ Added expense: ₹%s for %s.", expense.Amount.StringFixed(2), expense.Category)
	if expense.Warning != "" {
		reply += "\n⚠️ " + expense.Warning
	}
	return reply, true, nil
}

func (h *Handler) summaryReply(userID int64, now time.Time) (string, bool, error) {
	summary, err := h.repo.MonthlySummary(userID, now)
	if err != nil {
		return "", false, fmt.Errorf("failed to load summary: %w", err)
	}

	var b strings.Builder
	b.WriteString("📊 Monthly Budget Overview:\n")
	fmt.Fprintf(&b, "• Total spent: ₹%s\n", summary.Total.StringFixed(2))
	fmt.Fprintf(&b, "• Monthly budget: ₹%s\n", summary.MonthlyBudget.StringFixed(2))
	fmt.Fprintf(&b, "• Remaining: ₹%s\n", summary.RemainingBudget.StringFixed(2))
	fmt.Fprintf(&b, "• Usage: %s%%", summary.BudgetUsagePercent.String())
	switch {
	case summary.IsOverBudget:
		fmt.Fprintf(&b, "\n🚨 You're over budget by ₹%s!", summary.RemainingBudget.Abs().StringFixed(2))
	case summary.BudgetUsagePercent.GreaterThanOrEqual(models.UsageWarningPercent):
		fmt.Fprintf(&b, "\n⚠️ You've used %s%% of your budget.", summary.BudgetUsagePercent.String())
	}
	return b.String(), false, nil
}

// fromInterpretation fills the gaps a model reply may leave with the same
// defaults the rule-based parser uses.
func fromInterpretation(e *llm.ParsedExpense, now time.Time) *nlp.ParsedExpense {
	parsed := &nlp.ParsedExpense{
		Amount:   *e.Amount,
		Category: e.Category,
		Merchant: e.Merchant,
		Date:     now,
	}
	if parsed.Category == "" {
		parsed.Category = "Other"
	}
	if d, err := time.Parse("2006-01-02", e.Date); err == nil && !d.After(now) {
		parsed.Date = d
	}
	return parsed
}
