package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account stored by the dev server
type User struct {
	ID            int64
	Name          string
	Email         string
	PasswordHash  string
	MonthlyBudget decimal.Decimal
	CreatedAt     string
}

// ChatEntry is one stored exchange on the chat channel
type ChatEntry struct {
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// MonthTotal is the spend recorded for one calendar month, keyed YYYY-MM
type MonthTotal struct {
	Month  string
	Amount decimal.Decimal
}
