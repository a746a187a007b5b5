package models

import "github.com/shopspring/decimal"

// QuickExpense is the manual entry form payload
type QuickExpense struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
}

type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        string          `json:"date"`
	Warning     string          `json:"warning,omitempty"`
}

// Goal is a spending target for one category
type Goal struct {
	ID           int64           `json:"id,omitempty"`
	UserID       int64           `json:"user_id"`
	Category     string          `json:"category"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Period       string          `json:"period"` // monthly | weekly
}

// Receipt is what the server extracted from an uploaded receipt
type Receipt struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Merchant string          `json:"merchant,omitempty"`
	Date     string          `json:"date,omitempty"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
