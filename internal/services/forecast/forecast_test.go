package forecast

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestDemandPowerLaw(t *testing.T) {
	// 100000 × (22/24)^-2.1 ≈ 120044
	f := Demand(100000, 24, 22, -2.1)
	want := 100000 * math.Pow(22.0/24.0, -2.1)
	if !almostEqual(f.ForecastedCustomers, want, 1e-6) {
		t.Fatalf("forecast = %f, want %f", f.ForecastedCustomers, want)
	}
	if f.Change <= 0 {
		t.Fatalf("price cut with negative elasticity must grow demand, change = %f", f.Change)
	}
	if !almostEqual(f.PriceChangePct, -100.0/12.0, 1e-9) {
		t.Fatalf("price change pct = %f", f.PriceChangePct)
	}
}

func TestDemandUnchangedPrice(t *testing.T) {
	f := Demand(5000, 30, 30, -1.5)
	if f.ForecastedCustomers != 5000 || f.Change != 0 || f.PercentChange != 0 {
		t.Fatalf("ratio 1 must be a no-op, got %+v", f)
	}
}

func TestDemandInvalidPrice(t *testing.T) {
	f := Demand(5000, 0, 22, -1.5)
	if f.ForecastedCustomers != 5000 {
		t.Fatalf("invalid current price must return baseline, got %f", f.ForecastedCustomers)
	}
}

func TestChurnLinearNotPowerLaw(t *testing.T) {
	// delta = 0.08 × 1.5 × 0.10 = 0.012
	f := Churn(0.08, 1.5, 10)
	if !almostEqual(f.Change, 0.012, 1e-12) {
		t.Fatalf("change = %f, want 0.012", f.Change)
	}
	if !almostEqual(f.ForecastedRate, 0.092, 1e-12) {
		t.Fatalf("rate = %f, want 0.092", f.ForecastedRate)
	}
	// Doubling the price change doubles the delta exactly.
	f2 := Churn(0.08, 1.5, 20)
	if !almostEqual(f2.Change, 2*f.Change, 1e-12) {
		t.Fatalf("linearity violated: %f vs %f", f2.Change, f.Change)
	}
}

func TestChurnClamped(t *testing.T) {
	if got := Churn(0.9, 5, 100).ForecastedRate; got != 1 {
		t.Fatalf("rate must clamp to 1, got %f", got)
	}
	if got := Churn(0.05, 5, -100).ForecastedRate; got != 0 {
		t.Fatalf("rate must clamp to 0, got %f", got)
	}
}

func TestAcquisitionMatchesDemandShape(t *testing.T) {
	a := Acquisition(2000, 24, 22, -2.4)
	want := 2000 * math.Pow(22.0/24.0, -2.4)
	if !almostEqual(a.ForecastedNew, want, 1e-6) {
		t.Fatalf("forecast = %f, want %f", a.ForecastedNew, want)
	}
}

func TestAcquisitionByTenureDefaultBuckets(t *testing.T) {
	a := AcquisitionByTenure(1000, 24, 22, nil)
	if len(a.ByBucket) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(a.ByBucket))
	}
	var sum float64
	for _, v := range a.ByBucket {
		sum += v
	}
	if !almostEqual(sum, a.ForecastedNew, 1e-9) {
		t.Fatalf("bucket sum %f != total %f", sum, a.ForecastedNew)
	}
	// Young customers are most price sensitive: a cut grows 0-3mo the most
	// relative to its baseline share.
	young := a.ByBucket["0-3mo"] / (1000 * 0.45)
	old := a.ByBucket["12mo+"] / (1000 * 0.20)
	if young <= old {
		t.Fatalf("0-3mo growth ratio %f must exceed 12mo+ ratio %f on a cut", young, old)
	}
}

func TestAcquisitionByTenureShareSum(t *testing.T) {
	// With ratio 1 the forecast equals the baseline because shares sum to 1.
	a := AcquisitionByTenure(1000, 24, 24, nil)
	if !almostEqual(a.ForecastedNew, 1000, 1e-9) {
		t.Fatalf("no-op forecast = %f", a.ForecastedNew)
	}
}
