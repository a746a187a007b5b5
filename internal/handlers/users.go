package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/budget"
	"smart-spend/internal/database"
	"smart-spend/internal/models"
)

type registerRequest struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Password      string          `json:"password"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID        int64           `json:"user_id"`
	Email         string          `json:"email"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

func (req *registerRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Name == "" || len(req.Name) > 50:
		return "name must be between 1 and 50 characters"
	case !validEmail(req.Email):
		return "a valid email address is required"
	case len(req.Password) < 6:
		return "password must be at least 6 characters"
	case req.MonthlyBudget.IsNegative():
		return "monthly_budget must not be negative"
	}
	return ""
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	user, err := h.repo.CreateUser(req.Name, req.Email, req.Password, req.MonthlyBudget)
	if errors.Is(err, database.ErrEmailTaken) {
		respondError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		h.logger.Error("Failed to create user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	if err := h.repo.SaveBudgets(user.ID, budget.Defaults(user.MonthlyBudget)); err != nil {
		h.logger.Warn("Failed to create default budgets", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, toAuthResponse(user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.repo.Authenticate(strings.TrimSpace(req.Email), req.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("Failed to authenticate", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	respondJSON(w, http.StatusOK, toAuthResponse(user))
}

func toAuthResponse(u *models.User) authResponse {
	return authResponse{UserID: u.ID, Email: u.Email, MonthlyBudget: u.MonthlyBudget}
}
