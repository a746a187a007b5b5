package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func ollama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "llama3.2" || req.Stream {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Prompt, "2026-03-15") {
			t.Errorf("prompt is missing today's date")
		}
		json.NewEncoder(w).Encode(generateResponse{Response: reply, Done: true})
	}))
	t.Cleanup(ts.Close)
	return ts
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestInterpretExpense(t *testing.T) {
	ts := ollama(t, "Sure! ```{\"intent\": \"add_expense\", \"expense\": {\"amount\": 450.5, \"category\": \"Food\", \"merchant\": \"Dominos\", \"date\": null}}```")

	got, err := NewClient(ts.URL, "llama3.2", time.Second).Interpret(context.Background(), "pizza night, four fifty fifty", testNow)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if !got.Valid() {
		t.Fatalf("interpretation not valid: %+v", got)
	}
	if got.Expense.Amount.String() != "450.5" || got.Expense.Category != "Food" || got.Expense.Merchant != "Dominos" {
		t.Fatalf("expense = %+v", got.Expense)
	}
}

func TestInterpretMissingAmount(t *testing.T) {
	ts := ollama(t, `{"intent": "add_expense", "expense": {"amount": null, "category": "Food"}}`)

	got, err := NewClient(ts.URL, "llama3.2", time.Second).Interpret(context.Background(), "had lunch", testNow)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got.Valid() {
		t.Fatalf("expected an invalid interpretation, got %+v", got.Expense)
	}
}

func TestInterpretWithoutJSON(t *testing.T) {
	ts := ollama(t, "I am not sure what you mean")

	_, err := NewClient(ts.URL, "llama3.2", time.Second).Interpret(context.Background(), "hmm", testNow)
	if err == nil || !strings.Contains(err.Error(), "no JSON") {
		t.Fatalf("err = %v, want no JSON error", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"intent":"unknown"}`, `{"intent":"unknown"}`},
		{"text {\"a\":{\"b\":1}} more", `{"a":{"b":1}}`},
		{"} backwards {", ""},
		{"nothing", ""},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
