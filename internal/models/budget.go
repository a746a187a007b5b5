package models

import "github.com/shopspring/decimal"

// BudgetPlan suggests how per-category limits could move so surplus from
// under-spent categories covers the over-spent ones.
type BudgetPlan struct {
	Summary          string                     `json:"summary"`
	OriginalBudgets  map[string]decimal.Decimal `json:"original_budgets,omitempty"`
	CurrentSpending  map[string]decimal.Decimal `json:"current_spending,omitempty"`
	Overspending     map[string]decimal.Decimal `json:"overspending,omitempty"`
	AvailableSurplus map[string]decimal.Decimal `json:"available_surplus,omitempty"`
	SuggestedBudgets map[string]decimal.Decimal `json:"suggested_budgets,omitempty"`
	Error            string                     `json:"error,omitempty"`
}

// Changed lists the categories whose suggested limit differs from the current
// one.
func (p *BudgetPlan) Changed() []string {
	var cats []string
	for cat, suggested := range p.SuggestedBudgets {
		if !suggested.Equal(p.OriginalBudgets[cat]) {
			cats = append(cats, cat)
		}
	}
	return cats
}
