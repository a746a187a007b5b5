package models

import "github.com/shopspring/decimal"

// Session identifies the authenticated user for the lifetime of one client.
type Session struct {
	UserID        string          `json:"user_id"`
	Email         string          `json:"email"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Password      string          `json:"password"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}
