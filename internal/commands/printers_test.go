package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"smart-spend/internal/models"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(0), "₹0.00"},
		{decimal.RequireFromString("12.5"), "₹12.50"},
		{decimal.RequireFromString("-100"), "-₹100.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, money(tt.in))
	}
}

func TestPrintSnapshot(t *testing.T) {
	color.NoColor = true
	budget := decimal.NewFromInt(1000)
	snap := &models.Snapshot{
		Summary: models.Summary{
			Total: decimal.NewFromInt(600),
			Categories: map[string]decimal.Decimal{
				"Transport": decimal.NewFromInt(100),
				"Food":      decimal.NewFromInt(500),
			},
			MonthlyBudget:      &budget,
			RemainingBudget:    decimal.NewFromInt(400),
			BudgetUsagePercent: decimal.NewFromInt(60),
			Year:               2026,
			Month:              3,
		},
		Forecast: models.Forecast{
			History:  []models.ForecastPoint{{Date: "2026-03", Amount: decimal.NewFromInt(600)}},
			Forecast: []models.ForecastPoint{{Date: "2026-04", Amount: decimal.NewFromInt(650)}},
		},
	}

	var buf bytes.Buffer
	printSnapshot(&buf, snap)
	out := buf.String()

	assert.Contains(t, out, "2026-03")
	assert.Contains(t, out, "₹400.00")
	assert.Contains(t, out, "60.0%")
	assert.Contains(t, out, "projected")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Food")), bytes.Index(buf.Bytes(), []byte("Transport")))
}

func TestPrintSnapshotWithoutData(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printSnapshot(&buf, nil)
	assert.Contains(t, buf.String(), "Dashboard unavailable")

	buf.Reset()
	printForecast(&buf, &models.Forecast{Error: "Not enough data"})
	assert.Contains(t, buf.String(), "Not enough data")
	assert.Contains(t, buf.String(), "none")

	buf.Reset()
	printGoals(&buf, nil)
	assert.Contains(t, buf.String(), "none")
}

func TestPrintSummaryAlerts(t *testing.T) {
	color.NoColor = true
	budget := decimal.NewFromInt(1000)

	tests := []struct {
		name  string
		total int64
		usage int64
		want  string
	}{
		{"inside budget", 500, 50, ""},
		{"close to budget", 850, 85, "! 85.0% of the monthly budget used"},
		{"over budget", 1200, 120, "! Over budget by ₹200.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining := budget.Sub(decimal.NewFromInt(tt.total))
			var buf bytes.Buffer
			printSummary(&buf, &models.Summary{
				Total:              decimal.NewFromInt(tt.total),
				MonthlyBudget:      &budget,
				RemainingBudget:    remaining,
				BudgetUsagePercent: decimal.NewFromInt(tt.usage),
				IsOverBudget:       remaining.IsNegative(),
			})
			if tt.want == "" {
				assert.NotContains(t, buf.String(), "! ")
				return
			}
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrintBudgetPlan(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printBudgetPlan(&buf, &models.BudgetPlan{
		Summary:          "moved",
		OriginalBudgets:  map[string]decimal.Decimal{"Food": decimal.NewFromInt(400), "Shopping": decimal.NewFromInt(200)},
		CurrentSpending:  map[string]decimal.Decimal{"Food": decimal.NewFromInt(500)},
		SuggestedBudgets: map[string]decimal.Decimal{"Food": decimal.NewFromInt(460), "Shopping": decimal.NewFromInt(140)},
	})
	out := buf.String()
	assert.Contains(t, out, "₹460.00")
	assert.Contains(t, out, "₹140.00")
	assert.Less(t, strings.Index(out, "Food"), strings.Index(out, "Shopping"))

	buf.Reset()
	printBudgetPlan(&buf, &models.BudgetPlan{Summary: "No overspending detected, your budgets are well balanced!"})
	assert.Contains(t, buf.String(), "well balanced")

	buf.Reset()
	printBudgetPlan(&buf, &models.BudgetPlan{Error: "No budgets found for user."})
	assert.Contains(t, buf.String(), "No budgets found")
}

func TestPrintMonth(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printMonth(&buf, &models.MonthlyRecord{Year: 2025, Month: 11, MonthName: "November", TotalSpent: decimal.NewFromInt(300),
		Categories: map[string]decimal.Decimal{"Bills": decimal.NewFromInt(300)}})
	assert.Contains(t, buf.String(), "November 2025")
	assert.Contains(t, buf.String(), "Bills")

	buf.Reset()
	printMonth(&buf, &models.MonthlyRecord{Year: 2025, Month: 1, MonthName: "January"})
	assert.Contains(t, buf.String(), "no expenses recorded")
}
