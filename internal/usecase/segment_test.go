package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
)

func testSegments() *fakeSegments {
	return &fakeSegments{segments: map[string][]models.Segment{
		models.TierAdFree: {
			{
				Tier:         models.TierAdFree,
				CompositeKey: "organic:heavy:payg",
				Acquisition:  "organic",
				Engagement:   "heavy",
				Monetization: "payg",
				Customers:    5000,
				Elasticities: map[string]models.AxisElasticity{
					"acquisition_axis": {Elasticity: -2.0},
					"repeat_loss_axis": {Elasticity: -1.2},
				},
				KPIs: models.KPIRecord{RepeatLossRate: 0.06, AOV: 12},
			},
			{
				Tier:         models.TierAdFree,
				CompositeKey: "paid:light:payg",
				Acquisition:  "paid",
				Engagement:   "light",
				Monetization: "payg",
				Customers:    3000,
				KPIs:         models.KPIRecord{RepeatLossRate: 0.09, AOV: 11},
			},
			{
				Tier:         models.TierAdFree,
				CompositeKey: "paid:medium:subscription",
				Acquisition:  "paid",
				Engagement:   "medium",
				Monetization: "subscription",
				Customers:    1000,
				KPIs:         models.KPIRecord{RepeatLossRate: 0.04, AOV: 14},
			},
		},
	}}
}

func TestSegmentTierDeltaEqualsDirectImpact(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	sc := priceScenario("seg-hike", models.TierAdFree, 12, 13)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "organic:heavy:payg"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if res.TargetSegment != "organic:heavy:payg" {
		t.Fatalf("target segment = %q", res.TargetSegment)
	}
	// Spillover redistributes within the tier, so the tier-level customer
	// delta is exactly the segment's direct demand change.
	direct := 5000*math.Pow(13.0/12.0, -2.0) - 5000
	if !almostEqual(res.Delta.Customers, direct, 0.5) {
		t.Fatalf("tier delta = %.2f, want direct impact %.2f", res.Delta.Customers, direct)
	}
	if res.Elasticity != -2.0 {
		t.Fatalf("elasticity = %v, want segment coefficient -2.0", res.Elasticity)
	}
}

func TestSegmentSpilloverProportionalAndSigned(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	sc := priceScenario("seg-hike", models.TierAdFree, 12, 13)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "organic:heavy:payg"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if len(res.Spillover) != 2 {
		t.Fatalf("spillover entries = %d, want 2", len(res.Spillover))
	}

	// Migration rate: min(|demand change fraction| * 0.25, 0.10).
	demandChange := math.Pow(13.0/12.0, -2.0) - 1
	rate := -demandChange * 0.25
	if rate > 0.10 {
		rate = 0.10
	}
	migrants := rate * 5000

	byKey := map[string]float64{}
	for _, e := range res.Spillover {
		byKey[e.SegmentKey] = e.Delta
	}
	// Siblings split 3000:1000; a price increase pushes customers toward
	// them, so deltas are positive.
	if !almostEqual(byKey["paid:light:payg"], migrants*0.75, 0.5) {
		t.Fatalf("spillover to paid:light:payg = %.2f, want %.2f", byKey["paid:light:payg"], migrants*0.75)
	}
	if !almostEqual(byKey["paid:medium:subscription"], migrants*0.25, 0.5) {
		t.Fatalf("spillover to paid:medium:subscription = %.2f, want %.2f", byKey["paid:medium:subscription"], migrants*0.25)
	}
}

func TestSegmentSpilloverRateCapped(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	// Doubling the price collapses demand far past the cap.
	sc := priceScenario("seg-double", models.TierAdFree, 12, 24)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "organic:heavy:payg"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	var total float64
	for _, e := range res.Spillover {
		total += e.Delta
	}
	// Capped at 10% of the 5000-customer segment.
	if !almostEqual(total, 500, 0.5) {
		t.Fatalf("total spillover = %.2f, want capped 500", total)
	}
}

func TestSegmentPriceCutPullsCustomersIn(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	sc := priceScenario("seg-cut", models.TierAdFree, 12, 11)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "organic:heavy:payg"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	for _, e := range res.Spillover {
		if e.Delta >= 0 {
			t.Fatalf("sibling %s delta = %.2f, want negative on a price cut", e.SegmentKey, e.Delta)
		}
	}
}

func TestSegmentUnknownKey(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	sc := priceScenario("seg-hike", models.TierAdFree, 12, 13)

	_, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "nope:nope:nope"})
	if !errors.Is(err, domrepo.ErrSegmentNotFound) {
		t.Fatalf("err = %v, want ErrSegmentNotFound", err)
	}
}

func TestSegmentDegradesWithoutSegmentStore(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("seg-hike", models.TierAdFree, 12, 13)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "organic:heavy:payg"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if !containsWarning(res.Warnings, "Segment data unavailable; tier-level analysis only") {
		t.Fatalf("missing degradation warning, got %v", res.Warnings)
	}
	if res.TargetSegment != "" {
		t.Fatalf("degraded run must be tier-level, got target %q", res.TargetSegment)
	}
}

func TestSegmentWarningOnLargeChange(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	sc := priceScenario("seg-surge", models.TierAdFree, 12, 15)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{TargetSegment: "organic:heavy:payg"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if !containsWarning(res.Warnings, "Segment price change of 25.0% exceeds 15% threshold") {
		t.Fatalf("missing segment price warning, got %v", res.Warnings)
	}
}

func TestSimulateSegmentScenarioDefaultsToAll(t *testing.T) {
	sim := newTestSimulator(testSeries(), testSegments())
	sc := priceScenario("seg-hike", models.TierAdFree, 12, 13)

	res, err := sim.SimulateSegmentScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateSegmentScenario: %v", err)
	}
	// "all" routes to the whole-tier path.
	if res.TargetSegment != "" || len(res.Spillover) != 0 {
		t.Fatalf("expected whole-tier result, got target %q with %d spillover entries",
			res.TargetSegment, len(res.Spillover))
	}
}
