package kpi

import (
	"testing"

	"PriceLens/internal/domain/models"
)

func TestWeightedBaseline(t *testing.T) {
	got := WeightedBaseline([]models.BaselineMetrics{
		{ActiveCustomers: 100000, NewCustomers: 4000, RepeatLossRate: 0.08, Revenue: 2400000, AOV: 24, Price: 24},
		{ActiveCustomers: 50000, NewCustomers: 2000, RepeatLossRate: 0.05, Revenue: 600000, AOV: 12, Price: 12},
	})
	if got.Tier != models.TierAll {
		t.Fatalf("tier = %q, want %q", got.Tier, models.TierAll)
	}
	if got.ActiveCustomers != 150000 || got.NewCustomers != 6000 || got.Revenue != 3000000 {
		t.Fatalf("sums = %v/%v/%v", got.ActiveCustomers, got.NewCustomers, got.Revenue)
	}
	wantRate := (0.08*100000 + 0.05*50000) / 150000
	if diff := got.RepeatLossRate - wantRate; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("weighted rate = %v, want %v", got.RepeatLossRate, wantRate)
	}
	if got.AOV != 20 || got.Price != 20 {
		t.Fatalf("weighted AOV/price = %v/%v, want 20/20", got.AOV, got.Price)
	}
}

func TestWeightedBaselineZeroCustomers(t *testing.T) {
	got := WeightedBaseline([]models.BaselineMetrics{
		{ActiveCustomers: 0, RepeatLossRate: 0.5, Revenue: 100},
	})
	if got.RepeatLossRate != 0 || got.AOV != 0 {
		t.Fatalf("zero-customer aggregate must have zero rates, got %+v", got)
	}
	if got.Revenue != 100 {
		t.Fatalf("revenue sum = %v, want 100", got.Revenue)
	}
}

func TestSafePctChange(t *testing.T) {
	cases := []struct {
		base, forecast, want float64
	}{
		{100, 110, 10},
		{100, 90, -10},
		{0, 5, 100},
		{0, -5, -100},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := SafePctChange(tc.base, tc.forecast); got != tc.want {
			t.Errorf("SafePctChange(%v, %v) = %v, want %v", tc.base, tc.forecast, got, tc.want)
		}
	}
}
