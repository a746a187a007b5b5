package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// UsageWarningPercent is the share of the monthly budget past which a month
// is flagged.
var UsageWarningPercent = decimal.NewFromInt(80)

// Summary represents the current month's spending for the dashboard
type Summary struct {
	Total              decimal.Decimal            `json:"total"`
	Categories         map[string]decimal.Decimal `json:"categories"`
	MonthlyBudget      *decimal.Decimal           `json:"monthly_budget,omitempty"`
	RemainingBudget    decimal.Decimal            `json:"remaining_budget"`
	BudgetUsagePercent decimal.Decimal            `json:"budget_usage_percent"`
	IsOverBudget       bool                       `json:"is_over_budget"`
	Year               int                        `json:"year,omitempty"`
	Month              int                        `json:"month,omitempty"`
}

// Alert returns a one-line budget warning, or "" while spending is well inside
// the budget.
func (s Summary) Alert() string {
	switch {
	case s.IsOverBudget:
		return fmt.Sprintf("Over budget by ₹%s", s.RemainingBudget.Abs().StringFixed(2))
	case s.BudgetUsagePercent.GreaterThanOrEqual(UsageWarningPercent):
		return fmt.Sprintf("%s%% of the monthly budget used", s.BudgetUsagePercent.StringFixed(1))
	}
	return ""
}

// ForecastPoint is one month of spend, either observed or predicted
type ForecastPoint struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// UnmarshalJSON accepts both history points ({date, amount}) and forecast
// points ({date, predicted}).
func (p *ForecastPoint) UnmarshalJSON(data []byte) error {
	var aux struct {
		Date      string           `json:"date"`
		Amount    *decimal.Decimal `json:"amount"`
		Predicted *decimal.Decimal `json:"predicted"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Date = aux.Date
	switch {
	case aux.Amount != nil:
		p.Amount = *aux.Amount
	case aux.Predicted != nil:
		p.Amount = *aux.Predicted
	default:
		p.Amount = decimal.Zero
	}
	return nil
}

// Forecast pairs observed monthly totals with projected ones
type Forecast struct {
	History  []ForecastPoint `json:"history"`
	Forecast []ForecastPoint `json:"forecast"`
	Error    string          `json:"error,omitempty"`
}

// Snapshot is the summary and forecast committed together by one refresh
type Snapshot struct {
	Summary  Summary
	Forecast Forecast
}

// MonthlyRecord is a stored month from the spending history
type MonthlyRecord struct {
	Year       int                        `json:"year"`
	Month      int                        `json:"month"`
	MonthName  string                     `json:"month_name"`
	TotalSpent decimal.Decimal            `json:"total_spent"`
	Categories map[string]decimal.Decimal `json:"categories"`
}
