// Package llm asks an Ollama model to read expenses out of chat messages the
// rule-based parser could not understand.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	IntentAddExpense   = "add_expense"
	IntentQuerySummary = "query_summary"
	IntentUnknown      = "unknown"
)

type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Interpretation is the model's reading of one chat message.
type Interpretation struct {
	Intent  string         `json:"intent"`
	Expense *ParsedExpense `json:"expense,omitempty"`
}

type ParsedExpense struct {
	Amount   *decimal.Decimal `json:"amount"`
	Category string           `json:"category"`
	Merchant string           `json:"merchant"`
	Date     string           `json:"date"`
}

// Valid reports whether the interpretation carries a usable expense.
func (i *Interpretation) Valid() bool {
	return i.Intent == IntentAddExpense && i.Expense != nil &&
		i.Expense.Amount != nil && i.Expense.Amount.IsPositive()
}

func NewClient(endpoint, model string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Interpret classifies a chat message relative to now.
func (c *Client) Interpret(ctx context.Context, message string, now time.Time) (*Interpretation, error) {
	prompt := fmt.Sprintf(expensePrompt, now.Format("2006-01-02"), message)

	response, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in LLM response")
	}

	var out Interpretation
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("failed to parse LLM JSON: %w", err)
	}
	if out.Intent == "" {
		out.Intent = IntentUnknown
	}
	return &out, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return genResp.Response, nil
}

// extractJSON trims any chatter around the outermost JSON object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
