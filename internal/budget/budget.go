// Package budget splits a monthly budget into per-category limits, suggests
// reallocations between them and flags unusual expenses.
package budget

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"smart-spend/internal/models"
)

// DefaultShares is the part of the monthly budget each category starts with.
var DefaultShares = map[string]decimal.Decimal{
	"Food":          decimal.RequireFromString("0.4"),
	"Shopping":      decimal.RequireFromString("0.2"),
	"Transport":     decimal.RequireFromString("0.1"),
	"Entertainment": decimal.RequireFromString("0.1"),
	"Bills":         decimal.RequireFromString("0.2"),
	"Other":         decimal.RequireFromString("0.1"),
}

// MaxReduction caps how much of a category's limit can be handed to others.
var MaxReduction = decimal.RequireFromString("0.3")

// minHistory is how many past expenses a category needs before anything in it
// is called unusual.
const minHistory = 5

// Defaults returns the starting per-category limits for a monthly budget.
func Defaults(monthly decimal.Decimal) map[string]decimal.Decimal {
	limits := make(map[string]decimal.Decimal, len(DefaultShares))
	for cat, share := range DefaultShares {
		limits[cat] = monthly.Mul(share).Round(2)
	}
	return limits
}

// Optimize moves surplus from categories spent below their limit to the ones
// spent above it. A category gives up at most MaxReduction of its limit. The
// amount moved is the smaller of total surplus and total overspend, shared
// out in proportion on both sides, so the overall budget stays the same.
func Optimize(limits, spending map[string]decimal.Decimal) *models.BudgetPlan {
	if len(limits) == 0 {
		return &models.BudgetPlan{Error: "No budgets found for user."}
	}

	plan := &models.BudgetPlan{
		OriginalBudgets: limits,
		CurrentSpending: spending,
	}

	overs := map[string]decimal.Decimal{}
	surplus := map[string]decimal.Decimal{}
	totalOver, totalSurplus := decimal.Zero, decimal.Zero
	for cat, limit := range limits {
		spent := spending[cat]
		if spent.GreaterThan(limit) {
			over := spent.Sub(limit).Round(2)
			overs[cat] = over
			totalOver = totalOver.Add(over)
			continue
		}
		available := decimal.Min(limit.Sub(spent), limit.Mul(MaxReduction)).Round(2)
		if available.IsPositive() {
			surplus[cat] = available
			totalSurplus = totalSurplus.Add(available)
		}
	}

	if totalOver.IsZero() {
		plan.Summary = "No overspending detected, your budgets are well balanced!"
		return plan
	}
	plan.Overspending = overs
	if totalSurplus.IsZero() {
		plan.Summary = fmt.Sprintf("Overspending total ₹%s but no available surplus to reallocate. Consider increasing your overall budget.",
			totalOver.StringFixed(2))
		return plan
	}
	plan.AvailableSurplus = surplus

	moved := decimal.Min(totalOver, totalSurplus)
	give, take := moved.Div(totalSurplus), moved.Div(totalOver)
	suggested := make(map[string]decimal.Decimal, len(limits))
	for cat, limit := range limits {
		suggested[cat] = limit
	}
	for cat, avail := range surplus {
		suggested[cat] = suggested[cat].Sub(avail.Mul(give).Round(2))
	}
	for cat, over := range overs {
		suggested[cat] = suggested[cat].Add(over.Mul(take).Round(2))
	}
	plan.SuggestedBudgets = suggested
	plan.Summary = describe(plan, totalOver, totalSurplus)
	return plan
}

func describe(plan *models.BudgetPlan, totalOver, totalSurplus decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("Budget Optimization Results:\n")
	fmt.Fprintf(&b, "Total overspent: ₹%s\n", totalOver.StringFixed(2))
	fmt.Fprintf(&b, "Total available for reallocation: ₹%s\n", totalSurplus.StringFixed(2))
	b.WriteString("\nSuggested changes:")

	changed := plan.Changed()
	sort.Strings(changed)
	for _, cat := range changed {
		original, next := plan.OriginalBudgets[cat], plan.SuggestedBudgets[cat]
		change := next.Sub(original)
		sign := ""
		if change.IsPositive() {
			sign = "+"
		}
		fmt.Fprintf(&b, "\n• %s: %s₹%s (₹%s → ₹%s)", cat, sign, change.StringFixed(2),
			original.StringFixed(2), next.StringFixed(2))
	}
	return b.String()
}

// IsAnomaly reports whether amount is an outlier against the earlier expenses
// of the same category, by z-score above 3 or by lying past the upper IQR
// fence.
func IsAnomaly(history []decimal.Decimal, amount decimal.Decimal) bool {
	if len(history) < minHistory {
		return false
	}

	values := make([]float64, len(history))
	for i, d := range history {
		values[i] = d.InexactFloat64()
	}
	x := amount.InexactFloat64()

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(values)))
	if std > 0 && math.Abs((x-mean)/std) > 3 {
		return true
	}

	sort.Float64s(values)
	q1, q3 := percentile(values, 0.25), percentile(values, 0.75)
	return x > q3+1.5*(q3-q1)
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// AnomalyWarning is the note attached to an expense IsAnomaly flags.
func AnomalyWarning(amount decimal.Decimal, category string) string {
	return fmt.Sprintf("This ₹%s expense in %s is unusually high compared to your recent history!",
		amount.StringFixed(2), category)
}
