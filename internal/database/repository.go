package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"smart-spend/internal/models"
)

const dateLayout = "2006-01-02T15:04:05"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// MaxExpenseAmount bounds a single stored expense.
var MaxExpenseAmount = decimal.NewFromInt(100_000)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(name, email, password string, monthlyBudget decimal.Decimal) (*models.User, error) {
	if _, err := r.getUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := r.db.Exec(
		`INSERT INTO users (name, email, password, monthly_budget) VALUES (?, ?, ?, ?)`,
		name, email, string(hash), monthlyBudget,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetUser(id)
}

// Authenticate returns the user whose email and password match.
func (r *Repository) Authenticate(email, password string) (*models.User, error) {
	user, err := r.getUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (r *Repository) GetUser(id int64) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(`
		SELECT id, name, email, password, monthly_budget, created_at
		FROM users WHERE id = ?`, id))
}

func (r *Repository) getUserByEmail(email string) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(`
		SELECT id, name, email, password, monthly_budget, created_at
		FROM users WHERE email = ?`, email))
}

func (r *Repository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.MonthlyBudget, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateExpense stores one expense. Amounts must be in (0, MaxExpenseAmount].
func (r *Repository) CreateExpense(userID int64, amount decimal.Decimal, category, description, merchant string, date time.Time) (*models.Expense, error) {
	if !amount.IsPositive() || amount.GreaterThan(MaxExpenseAmount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	category = strings.TrimSpace(category)
	if category == "" {
		category = "Other"
	}

	result, err := r.db.Exec(`
		INSERT INTO expenses (user_id, amount, category, description, merchant, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, amount, category, nullString(truncate(description, 255)),
		nullString(truncate(merchant, 100)), date.UTC().Format(dateLayout),
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetExpense(userID, id)
}

func (r *Repository) GetExpense(userID, id int64) (*models.Expense, error) {
	var (
		e           models.Expense
		description sql.NullString
		merchant    sql.NullString
	)
	err := r.db.QueryRow(`
		SELECT id, user_id, amount, category, description, merchant, date
		FROM expenses WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &description, &merchant, &e.Date)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	e.Merchant = merchant.String
	return &e, nil
}

// MonthlySummary totals the month containing now and records it in the
// monthly history.
func (r *Repository) MonthlySummary(userID int64, now time.Time) (*models.Summary, error) {
	user, err := r.GetUser(userID)
	if err != nil {
		return nil, err
	}

	categories, err := r.CategorySpending(userID, now)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, amount := range categories {
		total = total.Add(amount)
	}

	budget := user.MonthlyBudget
	remaining := budget.Sub(total)
	usage := decimal.Zero
	if budget.IsPositive() {
		usage = total.Div(budget).Mul(decimal.NewFromInt(100)).Round(2)
	}

	year, mon := now.UTC().Year(), int(now.UTC().Month())
	if err := r.saveMonthlySummary(userID, year, mon, total, categories); err != nil {
		return nil, err
	}

	return &models.Summary{
		Total:              total,
		Categories:         categories,
		MonthlyBudget:      &budget,
		RemainingBudget:    remaining,
		BudgetUsagePercent: usage,
		IsOverBudget:       remaining.IsNegative(),
		Year:               year,
		Month:              mon,
	}, nil
}

// CategorySpending totals the month containing now per category.
func (r *Repository) CategorySpending(userID int64, now time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.db.Query(`
		SELECT category, SUM(amount)
		FROM expenses
		WHERE user_id = ? AND substr(date, 1, 7) = ?
		GROUP BY category`, userID, now.UTC().Format("2006-01"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := map[string]decimal.Decimal{}
	for rows.Next() {
		var (
			category string
			amount   decimal.Decimal
		)
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, err
		}
		categories[category] = amount.Round(2)
	}
	return categories, rows.Err()
}

func (r *Repository) saveMonthlySummary(userID int64, year, month int, total decimal.Decimal, categories map[string]decimal.Decimal) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO monthly_summaries (user_id, year, month, total_spent, category_data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, year, month)
		DO UPDATE SET total_spent = excluded.total_spent, category_data = excluded.category_data`,
		userID, year, month, total, string(data))
	return err
}

// MonthlyHistory lists recorded months newest first. A zero year lists all.
func (r *Repository) MonthlyHistory(userID int64, year int) ([]models.MonthlyRecord, error) {
	query := `SELECT year, month, total_spent, category_data FROM monthly_summaries WHERE user_id = ?`
	args := []interface{}{userID}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY year DESC, month DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.MonthlyRecord{}
	for rows.Next() {
		var (
			rec  models.MonthlyRecord
			data string
		)
		if err := rows.Scan(&rec.Year, &rec.Month, &rec.TotalSpent, &data); err != nil {
			return nil, err
		}
		rec.Categories = map[string]decimal.Decimal{}
		if err := json.Unmarshal([]byte(data), &rec.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode category data: %w", err)
		}
		rec.MonthName = time.Month(rec.Month).String()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MonthlyRecord returns one recorded month. A month with nothing recorded
// comes back empty rather than as an error.
func (r *Repository) MonthlyRecord(userID int64, year, month int) (*models.MonthlyRecord, error) {
	rec := &models.MonthlyRecord{
		Year:       year,
		Month:      month,
		MonthName:  time.Month(month).String(),
		TotalSpent: decimal.Zero,
		Categories: map[string]decimal.Decimal{},
	}

	var data string
	err := r.db.QueryRow(`
		SELECT total_spent, category_data FROM monthly_summaries
		WHERE user_id = ? AND year = ? AND month = ?`, userID, year, month,
	).Scan(&rec.TotalSpent, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode category data: %w", err)
	}
	return rec, nil
}

// MonthlyTotals returns the spend per calendar month, oldest first.
func (r *Repository) MonthlyTotals(userID int64) ([]models.MonthTotal, error) {
	rows, err := r.db.Query(`
		SELECT substr(date, 1, 7) AS month, SUM(amount)
		FROM expenses
		WHERE user_id = ?
		GROUP BY month
		ORDER BY month`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.MonthTotal
	for rows.Next() {
		var t models.MonthTotal
		if err := rows.Scan(&t.Month, &t.Amount); err != nil {
			return nil, err
		}
		t.Amount = t.Amount.Round(2)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// CategoryAmounts lists every amount the user has spent in category.
func (r *Repository) CategoryAmounts(userID int64, category string) ([]decimal.Decimal, error) {
	rows, err := r.db.Query(`
		SELECT amount FROM expenses WHERE user_id = ? AND category = ?`, userID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var a decimal.Decimal
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

// SaveBudgets sets the monthly limit of each named category.
func (r *Repository) SaveBudgets(userID int64, limits map[string]decimal.Decimal) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for category, limit := range limits {
		if _, err := tx.Exec(`
			INSERT INTO budgets (user_id, category, monthly_limit)
			VALUES (?, ?, ?)
			ON CONFLICT (user_id, category)
			DO UPDATE SET monthly_limit = excluded.monthly_limit`,
			userID, category, limit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) Budgets(userID int64) (map[string]decimal.Decimal, error) {
	rows, err := r.db.Query(`
		SELECT category, monthly_limit FROM budgets WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	limits := map[string]decimal.Decimal{}
	for rows.Next() {
		var (
			category string
			limit    decimal.Decimal
		)
		if err := rows.Scan(&category, &limit); err != nil {
			return nil, err
		}
		limits[category] = limit.Round(2)
	}
	return limits, rows.Err()
}

// UserIDs lists every registered user.
func (r *Repository) UserIDs() ([]int64, error) {
	rows, err := r.db.Query(`SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveGoal inserts a goal or replaces the target of the existing goal for the
// same category and period.
func (r *Repository) SaveGoal(goal models.Goal) (*models.Goal, error) {
	goal.Category = strings.TrimSpace(goal.Category)
	_, err := r.db.Exec(`
		INSERT INTO goals (user_id, category, target_amount, period)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, category, period)
		DO UPDATE SET target_amount = excluded.target_amount`,
		goal.UserID, goal.Category, goal.TargetAmount, goal.Period)
	if err != nil {
		return nil, err
	}

	var saved models.Goal
	err = r.db.QueryRow(`
		SELECT id, user_id, category, target_amount, period
		FROM goals WHERE user_id = ? AND category = ? AND period = ?`,
		goal.UserID, goal.Category, goal.Period,
	).Scan(&saved.ID, &saved.UserID, &saved.Category, &saved.TargetAmount, &saved.Period)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *Repository) ListGoals(userID int64) ([]models.Goal, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, category, target_amount, period
		FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Category, &g.TargetAmount, &g.Period); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *Repository) SaveChat(userID int64, message, response string) error {
	_, err := r.db.Exec(`
		INSERT INTO chat_history (user_id, message, response, timestamp)
		VALUES (?, ?, ?, ?)`,
		userID, message, response, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// RecentChats returns up to limit exchanges, newest first.
func (r *Repository) RecentChats(userID int64, limit int) ([]models.ChatEntry, error) {
	rows, err := r.db.Query(`
		SELECT message, response, timestamp
		FROM chat_history
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.ChatEntry{}
	for rows.Next() {
		var (
			entry models.ChatEntry
			ts    string
		)
		if err := rows.Scan(&entry.Message, &entry.Response, &ts); err != nil {
			return nil, err
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Helper functions for nullable fields
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
