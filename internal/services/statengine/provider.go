package statengine

import (
	"context"
	"fmt"

	"PriceLens/internal/domain/models"
	domsvc "PriceLens/internal/domain/service"
	"PriceLens/pkg/config"
)

// HTTPPredictionProvider calls the sidecar statistical engine. The engine
// mirrors the local forecasting contract; unavailability is an expected
// condition for the caller, which falls back to the local path.
type HTTPPredictionProvider struct{ base *HTTPServiceBase }

func NewHTTPPredictionProvider(cfg *config.Config) *HTTPPredictionProvider {
	return &HTTPPredictionProvider{base: NewHTTPServiceBase(cfg)}
}

type predictReq struct {
	ScenarioID     string  `json:"scenario_id"`
	Tier           string  `json:"tier"`
	CurrentPrice   float64 `json:"current_price"`
	NewPrice       float64 `json:"new_price"`
	PriceChangePct float64 `json:"price_change_pct"`
}

type predictResp struct {
	Forecast   float64 `json:"forecast"`
	Change     float64 `json:"change"`
	PctChange  float64 `json:"pct_change"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

func (p *HTTPPredictionProvider) PredictAcquisition(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	return p.predict(ctx, "/predict/acquisition", s)
}

func (p *HTTPPredictionProvider) PredictChurn(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	return p.predict(ctx, "/predict/churn", s)
}

func (p *HTTPPredictionProvider) PredictMigration(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	return p.predict(ctx, "/predict/migration", s)
}

func (p *HTTPPredictionProvider) predict(ctx context.Context, path string, s models.Scenario) (domsvc.Prediction, error) {
	var pr predictResp
	err := p.base.PostJSONWithRetry(ctx, path, predictReq{
		ScenarioID:     s.ID,
		Tier:           s.Config.Tier,
		CurrentPrice:   s.Config.CurrentPrice,
		NewPrice:       s.Config.NewPrice,
		PriceChangePct: s.Config.PriceChangePct,
	}, &pr, 2)
	if err != nil {
		return domsvc.Prediction{}, fmt.Errorf("post predict: %w", err)
	}
	return domsvc.Prediction{
		Forecast:   pr.Forecast,
		Change:     pr.Change,
		PctChange:  pr.PctChange,
		Confidence: pr.Confidence,
		Model:      pr.Model,
	}, nil
}

var _ domsvc.PredictionProvider = (*HTTPPredictionProvider)(nil)
