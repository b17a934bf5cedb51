package kpi

import "PriceLens/internal/domain/models"

// WeightedBaseline aggregates per-tier baselines into one snapshot,
// weighting rate and AOV fields by customer count. Zero total customers
// yields plain sums with zero rates instead of NaN.
func WeightedBaseline(baselines []models.BaselineMetrics) models.BaselineMetrics {
	var out models.BaselineMetrics
	out.Tier = models.TierAll
	var totalCustomers, wRate, wAOV, wPrice float64
	for _, b := range baselines {
		out.ActiveCustomers += b.ActiveCustomers
		out.NewCustomers += b.NewCustomers
		out.Revenue += b.Revenue
		totalCustomers += b.ActiveCustomers
		wRate += b.RepeatLossRate * b.ActiveCustomers
		wAOV += b.AOV * b.ActiveCustomers
		wPrice += b.Price * b.ActiveCustomers
	}
	if totalCustomers > 0 {
		out.RepeatLossRate = wRate / totalCustomers
		out.AOV = wAOV / totalCustomers
		out.Price = wPrice / totalCustomers
	}
	return out
}

// WeightedSegmentKPIs aggregates segment KPI records weighted by segment
// customer count.
func WeightedSegmentKPIs(segments []models.Segment) models.KPIRecord {
	var out models.KPIRecord
	var total float64
	for _, s := range segments {
		total += s.Customers
		out.RepeatLossRate += s.KPIs.RepeatLossRate * s.Customers
		out.AOV += s.KPIs.AOV * s.Customers
		out.UnitsPerOrder += s.KPIs.UnitsPerOrder * s.Customers
		out.CAC += s.KPIs.CAC * s.Customers
	}
	if total > 0 {
		out.RepeatLossRate /= total
		out.AOV /= total
		out.UnitsPerOrder /= total
		out.CAC /= total
	}
	return out
}

// SafePctChange computes (forecast-base)/base×100, substituting ±100 when
// the base is zero so no NaN/Inf ever reaches a caller.
func SafePctChange(base, forecast float64) float64 {
	if base == 0 {
		switch {
		case forecast > 0:
			return 100
		case forecast < 0:
			return -100
		default:
			return 0
		}
	}
	return (forecast - base) / base * 100
}
