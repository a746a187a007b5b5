// Package forecast projects future monthly spend from past monthly totals.
package forecast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"smart-spend/internal/models"
)

const monthLayout = "2006-01"

// Project fits a least-squares line through the monthly totals and extends it
// the given number of months past the last observed month. Fewer than two
// observed months yield no projection. Negative projections are clamped to
// zero.
func Project(totals []models.MonthTotal, months int) (*models.Forecast, error) {
	result := &models.Forecast{
		History:  make([]models.ForecastPoint, 0, len(totals)),
		Forecast: []models.ForecastPoint{},
	}
	for _, t := range totals {
		result.History = append(result.History, models.ForecastPoint{Date: t.Month, Amount: t.Amount})
	}
	if len(totals) < 2 || months < 1 {
		return result, nil
	}

	last, err := time.Parse(monthLayout, totals[len(totals)-1].Month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", totals[len(totals)-1].Month, err)
	}

	slope, intercept := fit(totals)
	n := len(totals)
	for i := 0; i < months; i++ {
		predicted := intercept + slope*float64(n+i)
		if predicted < 0 {
			predicted = 0
		}
		result.Forecast = append(result.Forecast, models.ForecastPoint{
			Date:   last.AddDate(0, i+1, 0).Format(monthLayout),
			Amount: decimal.NewFromFloat(predicted).Round(2),
		})
	}
	return result, nil
}

func fit(totals []models.MonthTotal) (slope, intercept float64) {
	n := float64(len(totals))
	var sumX, sumY, sumXY, sumXX float64
	for i, t := range totals {
		x := float64(i)
		y := t.Amount.InexactFloat64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
