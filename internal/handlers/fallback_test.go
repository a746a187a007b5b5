package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-spend/internal/connection"
	"smart-spend/internal/llm"
	"smart-spend/internal/models"
	"smart-spend/internal/ocr"
	"smart-spend/internal/protocol"
)

func fakeOCR(t *testing.T, text string) *ocr.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(ts.Close)
	return ocr.NewClient(ts.URL, time.Second)
}

func fakeOllama(t *testing.T, status int, reply string) *llm.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"response": reply, "done": true})
	}))
	t.Cleanup(ts.Close)
	return llm.NewClient(ts.URL, "llama3.2", time.Second)
}

var jpegBytes = "\xff\xd8\xff\xe0\x00\x10JFIF"

func TestReceiptImageUsesOCR(t *testing.T) {
	env := newTestEnv(t, func(h *Handler) {
		h.WithOCR(fakeOCR(t, "Cafe Mocha\nCoffee 150.00\nTOTAL 180.00"))
	})
	sess := env.register(t, "ocr@example.com", 0)

	receipt, err := env.client.UploadReceipt(context.Background(), sess.UserID, "slip.jpg", strings.NewReader(jpegBytes))
	require.NoError(t, err)
	assert.True(t, receipt.Amount.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, "Food", receipt.Category)
	assert.Equal(t, "Cafe Mocha", receipt.Merchant)
}

func TestReceiptImageWithoutOCR(t *testing.T) {
	env := newTestEnv(t)
	sess := env.register(t, "noocr@example.com", 0)

	_, err := env.client.UploadReceipt(context.Background(), sess.UserID, "slip.jpg", strings.NewReader(jpegBytes))
	assert.Equal(t, http.StatusBadRequest, statusCode(err))
}

// chatOnce connects, skips the history frame, sends text and returns the reply.
func chatOnce(t *testing.T, env *testEnv, userID, text string) models.ServerEvent {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(connection.ChatURL(env.wsURL(), userID), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	return protocol.Decode(string(raw))
}

func TestChatFallsBackToLLM(t *testing.T) {
	reply := `{"intent": "add_expense", "expense": {"amount": 300, "category": "Transport", "merchant": "Ola", "date": null}}`
	env := newTestEnv(t, func(h *Handler) {
		h.WithLLM(fakeOllama(t, http.StatusOK, reply))
	})
	sess := env.register(t, "llm@example.com", 0)

	ev := chatOnce(t, env, sess.UserID, "cab home cost three hundred")
	require.Equal(t, models.EventUpdate, ev.Kind)
	assert.True(t, ev.IsExpense)
	require.Len(t, ev.Messages, 1)
	assert.Equal(t, "✅ Added expense: ₹300.00 for Transport.", ev.Messages[0].Text)

	summary, err := env.client.MonthlySummary(context.Background(), sess.UserID)
	require.NoError(t, err)
	assert.True(t, summary.Categories["Transport"].Equal(decimal.NewFromInt(300)))
}

func TestChatLLMFailureFallsThroughToHelp(t *testing.T) {
	env := newTestEnv(t, func(h *Handler) {
		h.WithLLM(fakeOllama(t, http.StatusInternalServerError, ""))
	})
	sess := env.register(t, "down@example.com", 0)

	ev := chatOnce(t, env, sess.UserID, "what's up")
	require.Equal(t, models.EventUpdate, ev.Kind)
	assert.False(t, ev.IsExpense)
	require.Len(t, ev.Messages, 1)
	assert.Contains(t, ev.Messages[0].Text, "couldn't find an amount")
}

func TestFromInterpretationDefaults(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(90)

	got := fromInterpretation(&llm.ParsedExpense{Amount: &amount, Date: "2026-03-10"}, now)
	assert.Equal(t, "Other", got.Category)
	assert.Equal(t, "2026-03-10", got.Date.Format("2006-01-02"))

	got = fromInterpretation(&llm.ParsedExpense{Amount: &amount, Category: "Food", Date: "2027-01-01"}, now)
	assert.Equal(t, "Food", got.Category)
	assert.Equal(t, now, got.Date)
}
