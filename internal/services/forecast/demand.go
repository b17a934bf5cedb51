package forecast

import "math"

// DemandForecast is the result of a constant-elasticity demand projection.
type DemandForecast struct {
	ForecastedCustomers float64
	Change              float64
	PercentChange       float64
	BaseCustomers       float64
	PriceChangePct      float64
}

// Demand applies the constant-elasticity power law
// forecast = base × (pNew/pCur)^e. A zero or negative current price yields
// the unchanged baseline: price ratios are undefined there and the caller
// already failed validation upstream.
func Demand(baseCustomers, currentPrice, newPrice, elasticity float64) DemandForecast {
	f := DemandForecast{
		ForecastedCustomers: baseCustomers,
		BaseCustomers:       baseCustomers,
	}
	if currentPrice <= 0 || newPrice <= 0 {
		return f
	}
	ratio := newPrice / currentPrice
	f.PriceChangePct = (ratio - 1) * 100
	f.ForecastedCustomers = baseCustomers * math.Pow(ratio, elasticity)
	f.Change = f.ForecastedCustomers - baseCustomers
	if baseCustomers != 0 {
		f.PercentChange = f.Change / baseCustomers * 100
	}
	return f
}
