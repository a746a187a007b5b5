package commands

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-spend/internal/database"
	"smart-spend/internal/handlers"
	"smart-spend/internal/storage"
)

// newBackend starts the dev backend and points the CLI at it through the
// environment.
func newBackend(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()

	db, err := database.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewLocalStorage(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	ts := httptest.NewServer(handlers.New(database.NewRepository(db), store, nil).Routes())
	t.Cleanup(ts.Close)

	t.Setenv("SMARTSPEND_CONFIG_PATH", dir)
	t.Setenv("SMARTSPEND_SERVER_URL", ts.URL)
	t.Setenv("SMARTSPEND_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("SMARTSPEND_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsNeedASession(t *testing.T) {
	newBackend(t)

	for _, args := range [][]string{
		{"summary"},
		{"history"},
		{"goal", "list"},
		{"expense", "add", "10", "Food"},
	} {
		_, err := run(t, "", args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "not logged in", args)
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	newBackend(t)

	_, err := run(t, "", "register", "--name", "Asha", "--email", "asha@example.com", "--password", "secret1")
	require.NoError(t, err)

	_, err = run(t, "wrong\n", "login", "--email", "asha@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestExpenseFlow(t *testing.T) {
	dir := newBackend(t)

	out, err := run(t, "secret1\n", "register", "--name", "Asha", "--email", "asha@example.com", "--budget", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered as asha@example.com")

	out, err = run(t, "", "expense", "add", "1100", "Food", "--merchant", "Subway")
	require.NoError(t, err)
	assert.Contains(t, out, "Added ₹1100.00 for Food")
	assert.Contains(t, out, "Remaining")
	assert.Contains(t, out, "-₹100.00")
	assert.Contains(t, out, "! Over budget by ₹100.00")
	assert.Contains(t, out, "Forecast")

	out, err = run(t, "", "goal", "set", "Food", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "Goal saved: Food ₹5000.00 monthly")

	out, err = run(t, "", "goal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "₹5000.00")

	csvPath := filepath.Join(dir, "statement.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("date,description,amount\n2026-01-05,Uber ride,300\nbad,row,x\n"), 0600))
	out, err = run(t, "", "upload", "csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 rows, skipped 1")

	out, err = run(t, "", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "₹1100.00")

	out, err = run(t, "", "history")
	require.NoError(t, err)
	now := time.Now()
	assert.Contains(t, out, now.Month().String())

	out, err = run(t, "", "history", "--month", strconv.Itoa(int(now.Month())))
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("%s %d", now.Month(), now.Year()))
	assert.Contains(t, out, "₹1100.00")

	_, err = run(t, "", "history", "--month", "13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month must be between 1 and 12")

	out, err = run(t, "", "budget", "optimize")
	require.NoError(t, err)
	assert.Contains(t, out, "Suggested")
	assert.Contains(t, out, "₹400.00")

	out, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, "", "summary")
	require.Error(t, err)
}

func TestExpenseAddRejectsBadAmount(t *testing.T) {
	newBackend(t)

	_, err := run(t, "", "expense", "add", "--", "-5", "Food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount must be positive")

	_, err = run(t, "", "expense", "add", "0", "Food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount must be positive")

	_, err = run(t, "", "expense", "add", "ten", "Food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")
}
