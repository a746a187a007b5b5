package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/budget"
	"smart-spend/internal/forecast"
)

const defaultForecastMonths = 3

type predictedPoint struct {
	Date      string          `json:"date"`
	Predicted decimal.Decimal `json:"predicted"`
}

type historyPoint struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type forecastResponse struct {
	History  []historyPoint   `json:"history"`
	Forecast []predictedPoint `json:"forecast"`
	Error    string           `json:"error,omitempty"`
}

// MonthlySummary handles GET /monthly_summary/{user_id}
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	summary, err := h.repo.MonthlySummary(userID, h.now())
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to build monthly summary", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error fetching monthly summary: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ForecastExpenses handles GET /forecast_expenses/{user_id}?months=
func (h *Handler) ForecastExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	months := defaultForecastMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusUnprocessableEntity, "months must be a positive integer")
			return
		}
		months = n
	}

	totals, err := h.repo.MonthlyTotals(userID)
	if err != nil {
		h.logger.Error("Failed to load monthly totals", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load expenses")
		return
	}

	resp := forecastResponse{History: []historyPoint{}, Forecast: []predictedPoint{}}
	projection, err := forecast.Project(totals, months)
	if err != nil {
		resp.Error = err.Error()
		respondJSON(w, http.StatusOK, resp)
		return
	}
	for _, p := range projection.History {
		resp.History = append(resp.History, historyPoint{Date: p.Date, Amount: p.Amount})
	}
	for _, p := range projection.Forecast {
		resp.Forecast = append(resp.Forecast, predictedPoint{Date: p.Date, Predicted: p.Amount})
	}
	respondJSON(w, http.StatusOK, resp)
}

// MonthlyHistory handles GET /monthly_history/{user_id}?year=
func (h *Handler) MonthlyHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "year must be an integer")
			return
		}
		year = n
	}

	records, err := h.repo.MonthlyHistory(userID, year)
	if err != nil {
		h.logger.Error("Failed to load monthly history", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error fetching monthly history: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// MonthlyData handles GET /monthly_data/{user_id}/{year}/{month}
func (h *Handler) MonthlyData(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "year must be an integer")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		respondError(w, http.StatusUnprocessableEntity, "month must be between 1 and 12")
		return
	}

	record, err := h.repo.MonthlyRecord(userID, year, month)
	if err != nil {
		h.logger.Error("Failed to load monthly data", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error fetching monthly data: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// OptimizeBudget handles GET /budget/optimize/{user_id}
func (h *Handler) OptimizeBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	limits, err := h.repo.Budgets(userID)
	if err != nil {
		h.logger.Error("Failed to load budgets", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load budgets")
		return
	}
	spending, err := h.repo.CategorySpending(userID, h.now())
	if err != nil {
		h.logger.Error("Failed to load spending", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load spending")
		return
	}
	respondJSON(w, http.StatusOK, budget.Optimize(limits, spending))
}

// CheckBudgets logs an alert for every user who is over or close to their
// monthly budget.
func (h *Handler) CheckBudgets() {
	ids, err := h.repo.UserIDs()
	if err != nil {
		h.logger.Error("Budget check failed", zap.Error(err))
		return
	}
	now := h.now()
	for _, id := range ids {
		summary, err := h.repo.MonthlySummary(id, now)
		if err != nil {
			h.logger.Warn("Budget check failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		if alert := summary.Alert(); alert != "" {
			h.logger.Warn("Budget alert", zap.Int64("user_id", id), zap.String("alert", alert))
		}
	}
}

// WatchBudgets runs CheckBudgets every interval until ctx is done.
func (h *Handler) WatchBudgets(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.CheckBudgets()
		}
	}
}
