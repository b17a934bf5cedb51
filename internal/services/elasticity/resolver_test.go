package elasticity

import (
	"context"
	"math"
	"testing"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
)

type fakeParams struct {
	tiers map[string]models.TierParams
}

func (f *fakeParams) TierParams(_ context.Context, tier string) (models.TierParams, error) {
	p, ok := f.tiers[tier]
	if !ok {
		return models.TierParams{}, domrepo.ErrTierNotFound
	}
	return p, nil
}

type fakeSegments struct {
	segs map[string]models.Segment // keyed tier+"|"+compositeKey
}

func (f *fakeSegments) SegmentsForTier(_ context.Context, tier string) ([]models.Segment, error) {
	var out []models.Segment
	for _, s := range f.segs {
		if s.Tier == tier {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegments) FilterSegments(_ context.Context, fl models.SegmentFilter) ([]models.Segment, error) {
	var out []models.Segment
	for _, s := range f.segs {
		if fl.Matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegments) Segment(_ context.Context, tier, key string) (models.Segment, error) {
	s, ok := f.segs[tier+"|"+key]
	if !ok {
		return models.Segment{}, domrepo.ErrSegmentNotFound
	}
	return s, nil
}

func (f *fakeSegments) AggregateKPIs([]models.Segment) models.KPIRecord { return models.KPIRecord{} }

type fakeAdjuster struct {
	mult models.MultiplierSet
}

func (f *fakeAdjuster) Multipliers(context.Context, string) (models.MultiplierSet, error) {
	return f.mult, nil
}

func (f *fakeAdjuster) Apply(k models.KPIRecord, _ models.MultiplierSet) models.KPIRecord { return k }

func newTestResolver(mult models.MultiplierSet) *Resolver {
	params := &fakeParams{tiers: map[string]models.TierParams{}}
	segs := &fakeSegments{segs: map[string]models.Segment{
		"ad_supported|organic:heavy:premium": {
			Tier:         "ad_supported",
			CompositeKey: "organic:heavy:premium",
			Acquisition:  "organic",
			Engagement:   "heavy",
			Monetization: "premium",
			Elasticities: map[string]models.AxisElasticity{
				"acquisition_axis": {Elasticity: -2.8},
				"repeat_loss_axis": {Elasticity: -1.2},
			},
		},
	}}
	return NewResolver(params, segs, &fakeAdjuster{mult: mult})
}

func TestResolveSegmentHit(t *testing.T) {
	r := newTestResolver(models.Identity())
	got := r.Resolve(context.Background(), "ad_supported", "organic:heavy:premium", models.AxisAcquisition, "")
	if got != -2.8 {
		t.Fatalf("segment elasticity = %f, want -2.8", got)
	}
}

func TestResolveSegmentAxisMultiplier(t *testing.T) {
	mult := models.Identity()
	mult.RepeatLoss = 1.5
	r := newTestResolver(mult)
	got := r.Resolve(context.Background(), "ad_supported", "organic:heavy:premium", models.AxisEngagement, "price_hawk")
	if math.Abs(got-(-1.2*1.5)) > 1e-12 {
		t.Fatalf("engagement axis resolution = %f, want %f", got, -1.2*1.5)
	}
}

func TestResolveTierBaseFallback(t *testing.T) {
	r := newTestResolver(models.Identity())
	if got := r.Resolve(context.Background(), "ad_supported", "no:such:segment", models.AxisAcquisition, ""); got != -2.1 {
		t.Fatalf("ad_supported fallback = %f, want -2.1", got)
	}
	if got := r.Resolve(context.Background(), "ad_free", "", models.AxisAcquisition, ""); got != -1.5 {
		t.Fatalf("ad_free fallback = %f, want -1.5", got)
	}
	if got := r.Resolve(context.Background(), "bundle", "", models.AxisAcquisition, ""); got != -1.5 {
		t.Fatalf("bundle must fall back to the ad_free base, got %f", got)
	}
}

func TestResolveGenericFallback(t *testing.T) {
	r := newTestResolver(models.Identity())
	if got := r.Resolve(context.Background(), "mystery_tier", "", models.AxisAcquisition, ""); got != -1.7 {
		t.Fatalf("generic fallback = %f, want -1.7", got)
	}
}

// Tier-level and generic fallbacks apply the acquisition cohort multiplier
// regardless of the requested axis.
func TestFallbackUsesAcquisitionMultiplierForAllAxes(t *testing.T) {
	mult := models.Identity()
	mult.AcquisitionElasticity = 2.0
	mult.RepeatLoss = 10.0
	r := newTestResolver(mult)

	got := r.Resolve(context.Background(), "ad_free", "", models.AxisEngagement, "price_hawk")
	if math.Abs(got-(-1.5*2.0)) > 1e-12 {
		t.Fatalf("engagement fallback = %f, want %f (acquisition multiplier)", got, -1.5*2.0)
	}
	got = r.Resolve(context.Background(), "mystery_tier", "", models.AxisMonetization, "price_hawk")
	if math.Abs(got-(-1.7*2.0)) > 1e-12 {
		t.Fatalf("generic monetization fallback = %f, want %f", got, -1.7*2.0)
	}
}

func TestResolveByAxisOrder(t *testing.T) {
	params := &fakeParams{tiers: map[string]models.TierParams{
		"ad_supported": {SegmentAxisOrder: []string{
			models.AxisEngagement, models.AxisAcquisition, models.AxisMonetization,
		}},
	}}
	segs := &fakeSegments{segs: map[string]models.Segment{
		"ad_supported|organic:heavy:premium": {
			Tier:         "ad_supported",
			CompositeKey: "organic:heavy:premium",
			Acquisition:  "organic",
			Engagement:   "heavy",
			Monetization: "premium",
			Elasticities: map[string]models.AxisElasticity{
				"acquisition_axis": {Elasticity: -3.3},
			},
		},
	}}
	r := NewResolver(params, segs, &fakeAdjuster{mult: models.Identity()})

	// Key arrives in the tier's UI axis order (engagement first) and must
	// still find the segment by axis matching.
	got := r.Resolve(context.Background(), "ad_supported", "heavy:organic:premium", models.AxisAcquisition, "")
	if got != -3.3 {
		t.Fatalf("axis-order resolution = %f, want -3.3", got)
	}
}

// A sibling sharing only one axis value with the requested key must never
// win axis-order resolution; only the full axis triple identifies a segment.
func TestResolveByAxisOrderExactMatchOnly(t *testing.T) {
	params := &fakeParams{tiers: map[string]models.TierParams{
		"ad_supported": {SegmentAxisOrder: []string{
			models.AxisEngagement, models.AxisAcquisition, models.AxisMonetization,
		}},
	}}
	segs := &fakeSegments{segs: map[string]models.Segment{
		"ad_supported|organic:light:basic": {
			Tier:         "ad_supported",
			CompositeKey: "organic:light:basic",
			Acquisition:  "organic",
			Engagement:   "light",
			Monetization: "basic",
			Elasticities: map[string]models.AxisElasticity{
				"acquisition_axis": {Elasticity: -9.9},
			},
		},
		"ad_supported|organic:heavy:premium": {
			Tier:         "ad_supported",
			CompositeKey: "organic:heavy:premium",
			Acquisition:  "organic",
			Engagement:   "heavy",
			Monetization: "premium",
			Elasticities: map[string]models.AxisElasticity{
				"acquisition_axis": {Elasticity: -2.8},
			},
		},
	}}
	r := NewResolver(params, segs, &fakeAdjuster{mult: models.Identity()})

	// The sibling shares the acquisition value "organic" with the key but
	// differs on the other two axes; the exact segment must win.
	got := r.Resolve(context.Background(), "ad_supported", "heavy:organic:premium", models.AxisAcquisition, "")
	if got != -2.8 {
		t.Fatalf("axis-order resolution = %f, want -2.8 (the exact segment)", got)
	}

	// A key matching no full triple falls back to the tier base, not to a
	// partially matching segment.
	got = r.Resolve(context.Background(), "ad_supported", "light:paid:premium", models.AxisAcquisition, "")
	if got != -2.1 {
		t.Fatalf("no-exact-match resolution = %f, want tier base -2.1", got)
	}
}

func TestAxisStorageKey(t *testing.T) {
	cases := map[string]string{
		models.AxisAcquisition:  "acquisition_axis",
		models.AxisEngagement:   "repeat_loss_axis",
		models.AxisMonetization: "migration_axis",
		"unknown":               "acquisition_axis",
	}
	for axis, want := range cases {
		if got := AxisStorageKey(axis); got != want {
			t.Fatalf("AxisStorageKey(%q) = %q, want %q", axis, got, want)
		}
	}
}
