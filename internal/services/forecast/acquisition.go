package forecast

import "math"

// TenureBucket splits the monthly new-customer total by customer tenure,
// each bucket with its own elasticity.
type TenureBucket struct {
	Name       string
	Share      float64 // fraction of monthly new customers
	Elasticity float64
}

// DefaultTenureBuckets is the standard tenure split used when the caller
// supplies none.
var DefaultTenureBuckets = []TenureBucket{
	{Name: "0-3mo", Share: 0.45, Elasticity: -2.4},
	{Name: "3-12mo", Share: 0.35, Elasticity: -1.8},
	{Name: "12mo+", Share: 0.20, Elasticity: -1.1},
}

// AcquisitionForecast is the projected monthly new-customer intake.
type AcquisitionForecast struct {
	ForecastedNew float64
	Change        float64
	PercentChange float64
	BaselineNew   float64
	ByBucket      map[string]float64
}

// Acquisition applies the power law to the new-customer baseline as a
// whole.
func Acquisition(baselineNew, currentPrice, newPrice, elasticity float64) AcquisitionForecast {
	f := AcquisitionForecast{ForecastedNew: baselineNew, BaselineNew: baselineNew}
	if currentPrice <= 0 || newPrice <= 0 {
		return f
	}
	ratio := newPrice / currentPrice
	f.ForecastedNew = baselineNew * math.Pow(ratio, elasticity)
	f.Change = f.ForecastedNew - baselineNew
	if baselineNew != 0 {
		f.PercentChange = f.Change / baselineNew * 100
	}
	return f
}

// AcquisitionByTenure projects each tenure bucket with its own elasticity
// and share of the monthly total, then sums.
func AcquisitionByTenure(baselineNew, currentPrice, newPrice float64, buckets []TenureBucket) AcquisitionForecast {
	if len(buckets) == 0 {
		buckets = DefaultTenureBuckets
	}
	f := AcquisitionForecast{
		BaselineNew: baselineNew,
		ByBucket:    make(map[string]float64, len(buckets)),
	}
	if currentPrice <= 0 || newPrice <= 0 {
		f.ForecastedNew = baselineNew
		return f
	}
	ratio := newPrice / currentPrice
	total := 0.0
	for _, b := range buckets {
		fc := baselineNew * b.Share * math.Pow(ratio, b.Elasticity)
		f.ByBucket[b.Name] = fc
		total += fc
	}
	f.ForecastedNew = total
	f.Change = total - baselineNew
	if baselineNew != 0 {
		f.PercentChange = f.Change / baselineNew * 100
	}
	return f
}
