// Package api is the REST client for the expense tracker backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smart-spend/internal/models"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// StatusError is a non-2xx response. Detail is the server's "detail" field
// when present, otherwise the raw body.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.Code, e.Detail)
}

type authResponse struct {
	UserID        json.Number     `json:"user_id"`
	Email         string          `json:"email"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login", creds, &resp); err != nil {
		return nil, err
	}
	return resp.session(), nil
}

func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.Session, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/register", reg, &resp); err != nil {
		return nil, err
	}
	return resp.session(), nil
}

func (r authResponse) session() *models.Session {
	return &models.Session{
		UserID:        r.UserID.String(),
		Email:         r.Email,
		MonthlyBudget: r.MonthlyBudget,
	}
}

func (c *Client) MonthlySummary(ctx context.Context, userID string) (*models.Summary, error) {
	var summary models.Summary
	if err := c.doJSON(ctx, http.MethodGet, "/monthly_summary/"+url.PathEscape(userID), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) Forecast(ctx context.Context, userID string, months int) (*models.Forecast, error) {
	path := "/forecast_expenses/" + url.PathEscape(userID) + "?months=" + strconv.Itoa(months)
	var forecast models.Forecast
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &forecast); err != nil {
		return nil, err
	}
	return &forecast, nil
}

// MonthlyHistory lists stored monthly totals; year 0 means all years.
func (c *Client) MonthlyHistory(ctx context.Context, userID string, year int) ([]models.MonthlyRecord, error) {
	path := "/monthly_history/" + url.PathEscape(userID)
	if year > 0 {
		path += "?year=" + strconv.Itoa(year)
	}
	var records []models.MonthlyRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MonthlyData returns one stored month; a month with nothing recorded comes
// back with zero totals.
func (c *Client) MonthlyData(ctx context.Context, userID string, year, month int) (*models.MonthlyRecord, error) {
	path := fmt.Sprintf("/monthly_data/%s/%d/%d", url.PathEscape(userID), year, month)
	var record models.MonthlyRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// OptimizeBudget asks for a reallocation of the user's category limits.
func (c *Client) OptimizeBudget(ctx context.Context, userID string) (*models.BudgetPlan, error) {
	var plan models.BudgetPlan
	if err := c.doJSON(ctx, http.MethodGet, "/budget/optimize/"+url.PathEscape(userID), nil, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *Client) AddQuickExpense(ctx context.Context, expense models.QuickExpense) (*models.Expense, error) {
	var created models.Expense
	if err := c.doJSON(ctx, http.MethodPost, "/expense/quick", expense, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) SaveGoal(ctx context.Context, goal models.Goal) (*models.Goal, error) {
	var saved models.Goal
	if err := c.doJSON(ctx, http.MethodPost, "/goals", goal, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	var goals []models.Goal
	if err := c.doJSON(ctx, http.MethodGet, "/goals/"+url.PathEscape(userID), nil, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func (c *Client) UploadReceipt(ctx context.Context, userID, filename string, r io.Reader) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := c.upload(ctx, "/upload/receipt", userID, filename, r, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) ImportCSV(ctx context.Context, userID, filename string, r io.Reader) (*models.ImportResult, error) {
	var result models.ImportResult
	if err := c.upload(ctx, "/upload/csv", userID, filename, r, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) upload(ctx context.Context, path, userID, filename string, r io.Reader, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	target := c.endpoint + path + "?user_id=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Code: resp.StatusCode, Detail: detail(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func detail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}
