package elasticity

import (
	"context"
	"strings"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	domsvc "PriceLens/internal/domain/service"
)

// Axis storage keys. The axis name → storage key mapping is a fixed table,
// not a naming convention; reproduce it exactly.
const (
	acquisitionAxisKey = "acquisition_axis"
	repeatLossAxisKey  = "repeat_loss_axis"
	migrationAxisKey   = "migration_axis"
)

// AxisStorageKey maps a public axis name to its internal storage key.
// Unknown axes map to the acquisition key.
func AxisStorageKey(axis string) string {
	switch axis {
	case models.AxisEngagement:
		return repeatLossAxisKey
	case models.AxisMonetization:
		return migrationAxisKey
	default:
		return acquisitionAxisKey
	}
}

// Tier-level base elasticities used when segment data is missing or
// malformed.
const (
	adSupportedBase = -2.1
	adFreeBase      = -1.5
	genericBase     = -1.7
)

// segmentSource resolves a segment-specific coefficient and applies the
// cohort multiplier for the requested axis.
type segmentSource struct {
	segments domrepo.SegmentStore
	params   domrepo.ParamStore
}

func (s *segmentSource) Name() string { return "segment" }

func (s *segmentSource) TryResolve(tier, compositeKey, axis string, mult models.MultiplierSet) (float64, bool) {
	if s.segments == nil || compositeKey == "" || compositeKey == "all" {
		return 0, false
	}
	seg, err := s.segments.Segment(context.Background(), tier, compositeKey)
	if err != nil {
		// Try matching the composite key against the tier's axis order
		// before giving up; keys arrive in UI order which may differ.
		seg, err = s.resolveByAxisOrder(tier, compositeKey)
		if err != nil {
			return 0, false
		}
	}
	block, ok := seg.Elasticities[AxisStorageKey(axis)]
	if !ok {
		return 0, false
	}
	return block.Elasticity * multiplierFor(axis, mult), true
}

func (s *segmentSource) resolveByAxisOrder(tier, compositeKey string) (models.Segment, error) {
	parts := strings.Split(compositeKey, ":")
	if len(parts) < 2 || s.params == nil {
		return models.Segment{}, domrepo.ErrSegmentNotFound
	}
	tp, err := s.params.TierParams(context.Background(), tier)
	if err != nil || len(tp.SegmentAxisOrder) != len(parts) {
		return models.Segment{}, domrepo.ErrSegmentNotFound
	}
	f := models.SegmentFilter{Tier: tier}
	for i, axis := range tp.SegmentAxisOrder {
		switch axis {
		case models.AxisAcquisition:
			f.Acquisition = parts[i]
		case models.AxisEngagement:
			f.Engagement = parts[i]
		case models.AxisMonetization:
			f.Monetization = parts[i]
		}
	}
	segs, err := s.segments.FilterSegments(context.Background(), f)
	if err != nil {
		return models.Segment{}, domrepo.ErrSegmentNotFound
	}
	// FilterSegments matches on any shared axis (the contract the spillover
	// aggregation wants); here only the exact axis triple identifies the
	// segment, so a partial-match sibling must not win.
	for _, seg := range segs {
		if seg.Acquisition == f.Acquisition &&
			seg.Engagement == f.Engagement &&
			seg.Monetization == f.Monetization {
			return seg, nil
		}
	}
	return models.Segment{}, domrepo.ErrSegmentNotFound
}

// tierBaseSource falls back to the per-tier constant. Note: the tier-level
// fallback always applies the acquisition cohort multiplier, whatever axis
// was requested. That asymmetry is exercised by real callers; keep it.
type tierBaseSource struct {
	params domrepo.ParamStore
}

func (s *tierBaseSource) Name() string { return "tier-base" }

func (s *tierBaseSource) TryResolve(tier, _, _ string, mult models.MultiplierSet) (float64, bool) {
	base, ok := tierBase(tier)
	if !ok {
		return 0, false
	}
	if s.params != nil {
		if tp, err := s.params.TierParams(context.Background(), tier); err == nil && tp.BaseElasticity != 0 {
			base = tp.BaseElasticity
		}
	}
	return base * mult.AcquisitionElasticity, true
}

func tierBase(tier string) (float64, bool) {
	switch tier {
	case models.TierAdSupported:
		return adSupportedBase, true
	case models.TierAdFree, models.TierBundle:
		return adFreeBase, true
	default:
		return 0, false
	}
}

// genericSource is the terminal fallback for unknown tiers. Same
// acquisition-multiplier asymmetry as tierBaseSource.
type genericSource struct{}

func (genericSource) Name() string { return "generic" }

func (genericSource) TryResolve(_, _, _ string, mult models.MultiplierSet) (float64, bool) {
	return genericBase * mult.AcquisitionElasticity, true
}

func multiplierFor(axis string, m models.MultiplierSet) float64 {
	switch axis {
	case models.AxisEngagement:
		return m.RepeatLoss
	case models.AxisMonetization:
		return m.MigrationAsymmetry
	default:
		return m.AcquisitionElasticity
	}
}

var (
	_ domsvc.ElasticitySource = (*segmentSource)(nil)
	_ domsvc.ElasticitySource = (*tierBaseSource)(nil)
	_ domsvc.ElasticitySource = genericSource{}
)
