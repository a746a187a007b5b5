// Package refresh fetches the dashboard's derived views as one unit.
package refresh

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smart-spend/internal/models"
)

const DefaultForecastMonths = 3

// Fetcher reads the two derived views for a user.
type Fetcher interface {
	MonthlySummary(ctx context.Context, userID string) (*models.Summary, error)
	Forecast(ctx context.Context, userID string, months int) (*models.Forecast, error)
}

// Coordinator is stateless: every call fetches a fresh pair and either returns
// both halves or an error.
type Coordinator struct {
	fetcher Fetcher
	months  int
	logger  *zap.Logger
}

func NewCoordinator(fetcher Fetcher, months int, logger *zap.Logger) *Coordinator {
	if months <= 0 {
		months = DefaultForecastMonths
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{fetcher: fetcher, months: months, logger: logger}
}

// Refresh fetches summary and forecast in parallel. If either fails the other
// is abandoned and no snapshot is returned.
func (c *Coordinator) Refresh(ctx context.Context, userID string) (*models.Snapshot, error) {
	var (
		summary  *models.Summary
		forecast *models.Forecast
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.fetcher.MonthlySummary(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to fetch summary: %w", err)
		}
		summary = s
		return nil
	})
	g.Go(func() error {
		f, err := c.fetcher.Forecast(gctx, userID, c.months)
		if err != nil {
			return fmt.Errorf("failed to fetch forecast: %w", err)
		}
		forecast = f
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if summary == nil || forecast == nil {
		return nil, fmt.Errorf("failed to refresh dashboard: empty response")
	}

	c.logger.Debug("Dashboard refreshed",
		zap.String("user_id", userID),
		zap.String("total", summary.Total.String()),
		zap.Int("forecast_points", len(forecast.Forecast)))

	return &models.Snapshot{Summary: *summary, Forecast: *forecast}, nil
}
