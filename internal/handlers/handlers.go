// Package handlers serves the development backend the client talks to: auth,
// the chat channel, uploads, goals and dashboard data.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smart-spend/internal/database"
	"smart-spend/internal/llm"
	"smart-spend/internal/ocr"
	"smart-spend/internal/storage"
)

// historyLimit is how many past exchanges are replayed when a chat channel
// opens.
const historyLimit = 5

type Handler struct {
	repo     *database.Repository
	storage  *storage.LocalStorage
	ocr      *ocr.Client
	llm      *llm.Client
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func New(repo *database.Repository, storage *storage.LocalStorage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:    repo,
		storage: storage,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// WithOCR sends receipts that are not plain text through an OCR service.
func (h *Handler) WithOCR(c *ocr.Client) *Handler {
	h.ocr = c
	return h
}

// WithLLM lets a language model read chat messages the rule-based parser
// cannot.
func (h *Handler) WithLLM(c *llm.Client) *Handler {
	h.llm = c
	return h
}

// Routes mounts every endpoint on a fresh router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Root)

	// Auth
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	// Realtime chat
	r.Get("/ws/chat/{user_id}", h.ChatSocket)

	// Uploads
	r.Post("/upload/receipt", h.UploadReceipt)
	r.Post("/upload/csv", h.UploadCSV)

	// Expenses & goals
	r.Post("/expense/quick", h.QuickExpense)
	r.Post("/goals", h.SaveGoal)
	r.Get("/goals/{user_id}", h.ListGoals)

	// Dashboard
	r.Get("/monthly_summary/{user_id}", h.MonthlySummary)
	r.Get("/forecast_expenses/{user_id}", h.ForecastExpenses)
	r.Get("/monthly_history/{user_id}", h.MonthlyHistory)
	r.Get("/monthly_data/{user_id}/{year}/{month}", h.MonthlyData)
	r.Get("/budget/optimize/{user_id}", h.OptimizeBudget)

	return r
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Smart Spend API is running"})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a {"detail": ...} body.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func pathUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	return id, err == nil && id > 0
}

func queryUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	return id, err == nil && id > 0
}
