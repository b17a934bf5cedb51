package repository

import (
	"context"
	"errors"
	"time"

	"PriceLens/internal/domain/models"
)

// ErrNoHistory is returned when a tier has no metric records at all. The
// simulator surfaces this loudly rather than computing on nothing.
var ErrNoHistory = errors.New("no metric history for tier")

// TierSeriesStore provides read-only access to the weekly tier KPI history.
// The most recent record of a tier is its current baseline.
type TierSeriesStore interface {
	GetSeries(ctx context.Context, tier string, from, to time.Time) ([]models.TierMetric, error)
	GetLatest(ctx context.Context, tier string) (models.TierMetric, error)
	Tiers(ctx context.Context) ([]string, error)
}
