package forecast

// ChurnForecast is the result of a repeat-loss projection. Rates are
// fractions in [0,1]; percentage display happens only at presentation
// boundaries.
type ChurnForecast struct {
	ForecastedRate float64
	Change         float64
	PercentChange  float64
	BaselineRate   float64
}

// Churn applies linear-in-elasticity scaling to the baseline repeat-loss
// rate: delta = base × e × (pct/100). Churn deliberately does not use the
// demand power law; the two effects scale differently. The forecasted rate
// is clamped to [0,1] since it is a rate.
func Churn(baselineRate, repeatLossElasticity, priceChangePct float64) ChurnForecast {
	change := baselineRate * repeatLossElasticity * (priceChangePct / 100)
	forecasted := clampRate(baselineRate + change)
	f := ChurnForecast{
		ForecastedRate: forecasted,
		Change:         forecasted - baselineRate,
		BaselineRate:   baselineRate,
	}
	if baselineRate != 0 {
		f.PercentChange = f.Change / baselineRate * 100
	}
	return f
}

func clampRate(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
