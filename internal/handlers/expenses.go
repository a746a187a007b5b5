package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smart-spend/internal/budget"
	"smart-spend/internal/database"
	"smart-spend/internal/models"
	"smart-spend/internal/nlp"
)

const maxUploadSize = 10 << 20

type quickExpenseRequest struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
}

var csvDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// QuickExpense handles POST /expense/quick
func (h *Handler) QuickExpense(w http.ResponseWriter, r *http.Request) {
	var req quickExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 || strings.TrimSpace(req.Category) == "" || !req.Amount.IsPositive() {
		respondError(w, http.StatusUnprocessableEntity, "user_id, a positive amount and category are required")
		return
	}

	expense, err := h.createExpense(req.UserID, req.Amount, req.Category, req.Description, req.Merchant, h.now())
	if errors.Is(err, database.ErrInvalidAmount) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to add expense", zap.Int64("user_id", req.UserID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to add expense")
		return
	}

	respondJSON(w, http.StatusOK, expense)
}

// createExpense stores an expense and attaches a warning when the amount is
// unusual for its category.
func (h *Handler) createExpense(userID int64, amount decimal.Decimal, category, description, merchant string, date time.Time) (*models.Expense, error) {
	history, err := h.repo.CategoryAmounts(userID, strings.TrimSpace(category))
	if err != nil {
		h.logger.Warn("Failed to load category history", zap.Int64("user_id", userID), zap.Error(err))
	}

	expense, err := h.repo.CreateExpense(userID, amount, category, description, merchant, date)
	if err != nil {
		return nil, err
	}
	if budget.IsAnomaly(history, expense.Amount) {
		expense.Warning = budget.AnomalyWarning(expense.Amount, expense.Category)
		h.logger.Info("Unusual expense", zap.Int64("user_id", userID),
			zap.String("category", expense.Category), zap.Stringer("amount", expense.Amount))
	}
	return expense, nil
}

// UploadReceipt handles POST /upload/receipt?user_id=. Text receipts are read
// as is; anything else needs the OCR service. The expense comes from the total
// line.
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, contents, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	key, err := h.storage.Save(filename, bytes.NewReader(contents))
	if err != nil {
		h.logger.Error("Failed to save receipt", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to save receipt")
		return
	}

	text, err := h.receiptText(r.Context(), key, contents)
	if err != nil {
		h.logger.Warn("Receipt text extraction failed", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusBadRequest, "Could not extract expense details from receipt.")
		return
	}
	parsed, ok := nlp.ParseReceipt(text, h.now())
	if !ok {
		respondError(w, http.StatusBadRequest, "Could not extract expense details from receipt.")
		return
	}

	expense, err := h.repo.CreateExpense(userID, parsed.Amount, parsed.Category, text, parsed.Merchant, parsed.Date)
	if errors.Is(err, database.ErrInvalidAmount) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to record receipt", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to record receipt")
		return
	}

	respondJSON(w, http.StatusOK, models.Receipt{
		Amount:   expense.Amount,
		Category: expense.Category,
		Merchant: expense.Merchant,
		Date:     expense.Date,
	})
}

// receiptText returns the receipt as text, running the stored file through OCR
// when it is not text already.
func (h *Handler) receiptText(ctx context.Context, key string, contents []byte) (string, error) {
	if utf8.Valid(contents) {
		return string(contents), nil
	}
	if h.ocr == nil {
		return "", errors.New("receipt is not text and no OCR service is configured")
	}

	f, err := h.storage.Open(key)
	if err != nil {
		return "", fmt.Errorf("failed to open stored receipt: %w", err)
	}
	defer f.Close()
	return h.ocr.ExtractText(ctx, key, f)
}

// UploadCSV handles POST /upload/csv?user_id=. Rows are date, description,
// amount after a header row; unreadable rows are skipped.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	userID, contents, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.importCSV(userID, contents)
	if err != nil {
		h.logger.Error("Failed to import csv", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to import csv")
		return
	}

	h.logger.Info("CSV imported", zap.Int64("user_id", userID), zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) importCSV(userID int64, contents []byte) (*models.ImportResult, error) {
	reader := csv.NewReader(bytes.NewReader(contents))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &models.ImportResult{}
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		return nil, err
	}

	now := h.now()
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(row) < 3 {
			result.Skipped++
			continue
		}

		description := strings.TrimSpace(row[1])
		amount, err := parseCSVAmount(row[2])
		if err != nil {
			result.Skipped++
			continue
		}

		_, err = h.repo.CreateExpense(userID, amount, nlp.ClassifyCategory(description), description, "", parseCSVDate(row[0], now))
		if errors.Is(err, database.ErrInvalidAmount) {
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Imported++
	}
	return result, nil
}

func parseCSVAmount(value string) (decimal.Decimal, error) {
	value = strings.NewReplacer("$", "", "₹", "", ",", "", " ", "").Replace(value)
	return decimal.NewFromString(value)
}

func parseCSVDate(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

// readUpload validates user_id and reads the multipart "file" field.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (int64, []byte, string, bool) {
	userID, ok := queryUserID(r)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "user_id query parameter is required")
		return 0, nil, "", false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "File too large")
		return 0, nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return 0, nil, "", false
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read file")
		return 0, nil, "", false
	}
	return userID, contents, header.Filename, true
}
