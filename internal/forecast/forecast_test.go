package forecast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-spend/internal/models"
)

func totals(pairs ...interface{}) []models.MonthTotal {
	var out []models.MonthTotal
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.MonthTotal{
			Month:  pairs[i].(string),
			Amount: decimal.NewFromInt(int64(pairs[i+1].(int))),
		})
	}
	return out
}

func TestProjectLinearTrend(t *testing.T) {
	got, err := Project(totals("2025-11", 100, "2025-12", 200, "2026-01", 300), 3)
	require.NoError(t, err)

	require.Len(t, got.History, 3)
	require.Len(t, got.Forecast, 3)

	want := []struct {
		date   string
		amount int64
	}{
		{"2026-02", 400},
		{"2026-03", 500},
		{"2026-04", 600},
	}
	for i, w := range want {
		assert.Equal(t, w.date, got.Forecast[i].Date)
		assert.True(t, got.Forecast[i].Amount.Equal(decimal.NewFromInt(w.amount)), "point %d = %s", i, got.Forecast[i].Amount)
	}
}

func TestProjectNeedsTwoMonths(t *testing.T) {
	got, err := Project(totals("2026-01", 300), 3)
	require.NoError(t, err)
	assert.Len(t, got.History, 1)
	assert.Empty(t, got.Forecast)

	empty, err := Project(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, empty.History)
	assert.Empty(t, empty.Forecast)
}

func TestProjectClampsAtZero(t *testing.T) {
	got, err := Project(totals("2026-01", 300, "2026-02", 10), 2)
	require.NoError(t, err)
	require.Len(t, got.Forecast, 2)
	assert.True(t, got.Forecast[1].Amount.IsZero())
}

func TestProjectRejectsBadMonth(t *testing.T) {
	_, err := Project(totals("2026-01", 1, "January", 2), 1)
	assert.Error(t, err)
}
