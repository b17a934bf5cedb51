package service

import (
	"context"

	"PriceLens/internal/domain/models"
)

// ElasticitySource is one named strategy of the resolver's ordered fallback
// chain. TryResolve returns (value, true) on success; a false return hands
// over to the next source. Sources never return errors.
type ElasticitySource interface {
	Name() string
	TryResolve(tier, compositeKey, axis string, mult models.MultiplierSet) (float64, bool)
}

// CohortAdjuster computes the multiplier set for an active cohort and
// applies it to KPI baselines.
type CohortAdjuster interface {
	Multipliers(ctx context.Context, cohortID string) (models.MultiplierSet, error)
	Apply(k models.KPIRecord, m models.MultiplierSet) models.KPIRecord
}

// PredictionProvider is the optional statistical engine running alongside
// the service. It returns forecasts structurally equivalent to the local
// forecasting path; any failure means "fall back locally", never a fatal
// error.
type PredictionProvider interface {
	PredictAcquisition(ctx context.Context, s models.Scenario) (Prediction, error)
	PredictChurn(ctx context.Context, s models.Scenario) (Prediction, error)
	PredictMigration(ctx context.Context, s models.Scenario) (Prediction, error)
}

// Prediction is the statistical engine's forecast for one lens.
type Prediction struct {
	Forecast   float64 `json:"forecast"`
	Change     float64 `json:"change"`
	PctChange  float64 `json:"pct_change"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}
