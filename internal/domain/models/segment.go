package models

// Segmentation axes. A segment is the three-axis classification
// acquisition × engagement × monetization; its composite key joins the three
// axis values in the tier's axis order.
const (
	AxisAcquisition  = "acquisition"
	AxisEngagement   = "engagement"
	AxisMonetization = "monetization"
)

// AxisElasticity is the per-axis coefficient block stored for a segment.
type AxisElasticity struct {
	Elasticity float64 `json:"elasticity"`
}

// Segment is one cell of the three-axis customer classification.
type Segment struct {
	Tier         string  `json:"tier"`
	CompositeKey string  `json:"composite_key"`
	Acquisition  string  `json:"acquisition"`
	Engagement   string  `json:"engagement"`
	Monetization string  `json:"monetization"`
	Customers    float64 `json:"customers"`
	SizePct      float64 `json:"size_pct"`
	// Per-axis elasticity blocks keyed by the internal storage key
	// (acquisition_axis / repeat_loss_axis / migration_axis). A missing key
	// is a normal condition handled by the resolver's fallback chain.
	Elasticities map[string]AxisElasticity `json:"elasticities"`
	KPIs         KPIRecord                 `json:"kpis"`
}

// SegmentFilter selects segments matching any of the given axis values for
// a tier. Empty fields are wildcards.
type SegmentFilter struct {
	Tier         string `json:"tier"`
	Acquisition  string `json:"acquisition"`
	Engagement   string `json:"engagement"`
	Monetization string `json:"monetization"`
}

// Matches reports whether the segment matches the filter on any set axis.
func (f SegmentFilter) Matches(s Segment) bool {
	if f.Tier != "" && f.Tier != s.Tier {
		return false
	}
	if f.Acquisition != "" && f.Acquisition == s.Acquisition {
		return true
	}
	if f.Engagement != "" && f.Engagement == s.Engagement {
		return true
	}
	if f.Monetization != "" && f.Monetization == s.Monetization {
		return true
	}
	return f.Acquisition == "" && f.Engagement == "" && f.Monetization == ""
}

// TierParams is the per-tier block of the elasticity parameter store.
type TierParams struct {
	BaseElasticity float64 `json:"base_elasticity"`
	PriceRange     struct {
		Current float64 `json:"current"`
		Min     float64 `json:"min"`
		Max     float64 `json:"max"`
	} `json:"price_range"`
	SegmentAxisOrder []string                      `json:"segment_axis_order"`
	Segments         map[string]SegmentElasticity  `json:"segments"`
	CohortElasticity map[string]map[string]float64 `json:"cohort_elasticity"`
}

// SegmentElasticity is the per-segment entry of the parameter store.
type SegmentElasticity struct {
	Elasticity float64 `json:"elasticity"`
	SizePct    float64 `json:"size_pct"`
}
