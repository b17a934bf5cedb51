package models

import "time"

// TierMetric is one weekly KPI record for a tier, as pushed by the data
// platform feed and stored in ClickHouse. RepeatLossRate is a fraction.
type TierMetric struct {
	Tier            string
	Date            time.Time
	ActiveCustomers float64
	NewCustomers    float64
	RepeatLossRate  float64
	Revenue         float64
	AOV             float64
	Price           float64
}

// BaselineMetrics is the current-state snapshot a simulation starts from,
// derived from the latest weekly record of a tier.
type BaselineMetrics struct {
	Tier            string  `json:"tier"`
	ActiveCustomers float64 `json:"active_customers"`
	NewCustomers    float64 `json:"new_customers"`
	RepeatLossRate  float64 `json:"repeat_loss_rate"`
	Revenue         float64 `json:"revenue"`
	AOV             float64 `json:"aov"`
	Price           float64 `json:"price"`
	// Set when the tier is hypothetical and the snapshot was proxied from
	// an existing tier.
	IsNewTier bool   `json:"is_new_tier,omitempty"`
	ProxyTier string `json:"proxy_tier,omitempty"`
}

// MetricSet is one side (baseline/forecast/delta) of a simulation result.
// Rates are fractions; *_pct fields are percentage points.
type MetricSet struct {
	Customers      float64 `json:"customers"`
	Revenue        float64 `json:"revenue"`
	AOV            float64 `json:"aov"`
	RepeatLossRate float64 `json:"repeat_loss_rate"`
	CLTV           float64 `json:"cltv"`
	NetAdds        float64 `json:"net_adds"`
}

// DeltaSet carries absolute and percentage deltas between baseline and
// forecast.
type DeltaSet struct {
	Customers      float64 `json:"customers"`
	CustomersPct   float64 `json:"customers_pct"`
	Revenue        float64 `json:"revenue"`
	RevenuePct     float64 `json:"revenue_pct"`
	AOV            float64 `json:"aov"`
	AOVPct         float64 `json:"aov_pct"`
	RepeatLossRate float64 `json:"repeat_loss_rate"`
	CLTV           float64 `json:"cltv"`
	NetAdds        float64 `json:"net_adds"`
}

// ConfidenceInterval bounds the forecasted customer count.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// TimeSeriesPoint is one monthly point of the 13-point forecast series.
// Month 0 is the baseline.
type TimeSeriesPoint struct {
	Month          int     `json:"month"`
	Customers      float64 `json:"customers"`
	RepeatLossRate float64 `json:"repeat_loss_rate"`
	Revenue        float64 `json:"revenue"`
}

// SpilloverEntry reports customers migrating into (positive) or out of
// (negative) a non-targeted segment as a side effect of a segment-targeted
// price change.
type SpilloverEntry struct {
	SegmentKey string  `json:"segment_key"`
	Delta      float64 `json:"delta"`
}

// SimulationResult is the output of simulating one scenario. It is built
// once per (scenario, mode) and never mutated afterwards, except to stamp
// ModelType when the scenario omitted it.
type SimulationResult struct {
	ScenarioID         string             `json:"scenario_id"`
	ScenarioName       string             `json:"scenario_name"`
	ModelType          string             `json:"model_type"`
	Tier               string             `json:"tier"`
	Timestamp          time.Time          `json:"timestamp"`
	Baseline           MetricSet          `json:"baseline"`
	Forecasted         MetricSet          `json:"forecasted"`
	Delta              DeltaSet           `json:"delta"`
	Elasticity         float64            `json:"elasticity"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	TimeSeries         []TimeSeriesPoint  `json:"time_series"`
	Warnings           []string           `json:"warnings"`
	ConstraintsMet     bool               `json:"constraints_met"`
	IsNewTier          bool               `json:"is_new_tier"`
	ProxyTier          string             `json:"proxy_tier,omitempty"`
	AdFreeShare        float64            `json:"ad_free_share"`
	TargetSegment      string             `json:"target_segment,omitempty"`
	Spillover          []SpilloverEntry   `json:"spillover,omitempty"`
}

// CompareEntry is one element of a best-effort batch comparison: either a
// result or an inline error for that scenario, never both.
type CompareEntry struct {
	ScenarioID string            `json:"scenario_id"`
	Result     *SimulationResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}
