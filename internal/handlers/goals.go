package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/models"
)

type goalRequest struct {
	UserID       int64           `json:"user_id"`
	Category     string          `json:"category"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Period       string          `json:"period"`
}

// SaveGoal handles POST /goals. A second goal for the same category and
// period replaces the first.
func (h *Handler) SaveGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	switch {
	case req.UserID <= 0 || strings.TrimSpace(req.Category) == "":
		respondError(w, http.StatusUnprocessableEntity, "user_id and category are required")
		return
	case req.TargetAmount.IsNegative():
		respondError(w, http.StatusUnprocessableEntity, "target_amount must not be negative")
		return
	case req.Period != "monthly" && req.Period != "weekly":
		respondError(w, http.StatusUnprocessableEntity, "period must be monthly or weekly")
		return
	}

	goal, err := h.repo.SaveGoal(models.Goal{
		UserID:       req.UserID,
		Category:     req.Category,
		TargetAmount: req.TargetAmount,
		Period:       req.Period,
	})
	if err != nil {
		h.logger.Error("Failed to save goal", zap.Int64("user_id", req.UserID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save goal")
		return
	}
	respondJSON(w, http.StatusOK, goal)
}

// ListGoals handles GET /goals/{user_id}
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	goals, err := h.repo.ListGoals(userID)
	if err != nil {
		h.logger.Error("Failed to load goals", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load goals")
		return
	}
	respondJSON(w, http.StatusOK, goals)
}
