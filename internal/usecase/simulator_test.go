package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	domsvc "PriceLens/internal/domain/service"
	"PriceLens/internal/services/elasticity"
	"PriceLens/internal/services/kpi"
)

// fakeSeries serves the latest weekly record per tier from a map.
type fakeSeries struct {
	latest map[string]models.TierMetric
}

func (f *fakeSeries) GetSeries(ctx context.Context, tier string, from, to time.Time) ([]models.TierMetric, error) {
	m, ok := f.latest[tier]
	if !ok {
		return nil, domrepo.ErrNoHistory
	}
	return []models.TierMetric{m}, nil
}

func (f *fakeSeries) GetLatest(ctx context.Context, tier string) (models.TierMetric, error) {
	m, ok := f.latest[tier]
	if !ok {
		return models.TierMetric{}, domrepo.ErrNoHistory
	}
	return m, nil
}

func (f *fakeSeries) Tiers(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(f.latest))
	for t := range f.latest {
		out = append(out, t)
	}
	return out, nil
}

// emptyParams has no tier entries, so the resolver falls back to the
// built-in tier base constants.
type emptyParams struct{}

func (emptyParams) TierParams(ctx context.Context, tier string) (models.TierParams, error) {
	return models.TierParams{}, domrepo.ErrTierNotFound
}

// fakeSegments serves a fixed segment list per tier.
type fakeSegments struct {
	segments map[string][]models.Segment
}

func (f *fakeSegments) SegmentsForTier(ctx context.Context, tier string) ([]models.Segment, error) {
	return f.segments[tier], nil
}

func (f *fakeSegments) FilterSegments(ctx context.Context, filter models.SegmentFilter) ([]models.Segment, error) {
	var out []models.Segment
	for _, s := range f.segments[filter.Tier] {
		if filter.Matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegments) Segment(ctx context.Context, tier, compositeKey string) (models.Segment, error) {
	for _, s := range f.segments[tier] {
		if s.CompositeKey == compositeKey {
			return s, nil
		}
	}
	return models.Segment{}, domrepo.ErrSegmentNotFound
}

func (f *fakeSegments) AggregateKPIs(segments []models.Segment) models.KPIRecord {
	return kpi.WeightedSegmentKPIs(segments)
}

// identityAdjuster always yields the identity multiplier set.
type identityAdjuster struct{}

func (identityAdjuster) Multipliers(ctx context.Context, cohortID string) (models.MultiplierSet, error) {
	return models.Identity(), nil
}

func (identityAdjuster) Apply(k models.KPIRecord, m models.MultiplierSet) models.KPIRecord {
	return k
}

type fakeMetrics struct {
	errors map[string]int
}

func (f *fakeMetrics) RecordMessageSent(backend, tier string)          {}
func (f *fakeMetrics) RecordActiveCustomers(tier string, count float64) {}
func (f *fakeMetrics) RecordLatency(op string, seconds float64)        {}
func (f *fakeMetrics) RecordError(kind string) {
	if f.errors == nil {
		f.errors = map[string]int{}
	}
	f.errors[kind]++
}

func testSeries() *fakeSeries {
	return &fakeSeries{latest: map[string]models.TierMetric{
		models.TierAdSupported: {
			Tier:            models.TierAdSupported,
			Date:            time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
			ActiveCustomers: 100000,
			NewCustomers:    4000,
			RepeatLossRate:  0.08,
			Revenue:         2400000,
			AOV:             24,
			Price:           24,
		},
		models.TierAdFree: {
			Tier:            models.TierAdFree,
			Date:            time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
			ActiveCustomers: 50000,
			NewCustomers:    2000,
			RepeatLossRate:  0.05,
			Revenue:         600000,
			AOV:             12,
			Price:           12,
		},
	}}
}

func newTestSimulator(series *fakeSeries, segments domrepo.SegmentStore) *ScenarioSimulator {
	params := emptyParams{}
	adj := identityAdjuster{}
	resolver := elasticity.NewResolver(params, segments, adj)
	return NewScenarioSimulator(series, params, segments, resolver, adj, &fakeMetrics{})
}

func priceScenario(id, tier string, cur, next float64) models.Scenario {
	sc := models.Scenario{
		ID:        id,
		Name:      id,
		Category:  models.CategoryPriceChange,
		ModelType: models.ModelAcquisition,
		Config: models.ScenarioConfig{
			Tier:         tier,
			CurrentPrice: cur,
			NewPrice:     next,
		},
	}
	sc.RecalcPriceChange()
	return sc
}

func TestSimulateWholeTierForecast(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("cut-2", models.TierAdSupported, 24, 22)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}

	wantCustomers := 100000 * math.Pow(22.0/24.0, -2.1)
	if !almostEqual(res.Forecasted.Customers, wantCustomers, 1) {
		t.Fatalf("forecasted customers = %.1f, want %.1f", res.Forecasted.Customers, wantCustomers)
	}
	if res.Elasticity != -2.1 {
		t.Fatalf("elasticity = %v, want -2.1", res.Elasticity)
	}
	if !almostEqual(res.Baseline.Revenue, 100000*24, 0.01) {
		t.Fatalf("baseline revenue = %.1f, want %.1f", res.Baseline.Revenue, 100000.0*24)
	}
	if !almostEqual(res.Forecasted.Revenue, wantCustomers*22, 1) {
		t.Fatalf("forecasted revenue = %.1f, want %.1f", res.Forecasted.Revenue, wantCustomers*22)
	}
	wantAOV := 24 * (1 + sc.Config.PriceChangePct/100)
	if !almostEqual(res.Forecasted.AOV, wantAOV, 1e-9) {
		t.Fatalf("forecasted AOV = %v, want %v", res.Forecasted.AOV, wantAOV)
	}
	if !almostEqual(res.Forecasted.CLTV, wantAOV*24, 1e-6) {
		t.Fatalf("forecasted CLTV = %v, want %v", res.Forecasted.CLTV, wantAOV*24)
	}
	if !res.ConstraintsMet {
		t.Fatal("unconstrained scenario should report constraints met")
	}
	// With |e| > 1 the demand gain overcomes the lower price.
	if res.Delta.Revenue <= 0 {
		t.Fatalf("revenue delta = %.1f, want positive for an elastic price cut", res.Delta.Revenue)
	}

	// Band is 0.05 + 0.02*|e| around the forecast.
	band := 0.05 + 0.02*2.1
	if !almostEqual(res.ConfidenceInterval.Lower, wantCustomers*(1-band), 1) {
		t.Fatalf("CI lower = %.1f, want %.1f", res.ConfidenceInterval.Lower, wantCustomers*(1-band))
	}
	if !almostEqual(res.ConfidenceInterval.Upper, wantCustomers*(1+band), 1) {
		t.Fatalf("CI upper = %.1f, want %.1f", res.ConfidenceInterval.Upper, wantCustomers*(1+band))
	}
}

func TestSimulateWholeTierTimeSeriesRamp(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("cut-2", models.TierAdSupported, 24, 22)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if len(res.TimeSeries) != 13 {
		t.Fatalf("series length = %d, want 13", len(res.TimeSeries))
	}
	first, last := res.TimeSeries[0], res.TimeSeries[12]
	if !almostEqual(first.Customers, res.Baseline.Customers, 0.01) {
		t.Fatalf("month 0 customers = %.1f, want baseline %.1f", first.Customers, res.Baseline.Customers)
	}
	if !almostEqual(last.Customers, res.Forecasted.Customers, 0.01) {
		t.Fatalf("month 12 customers = %.1f, want forecast %.1f", last.Customers, res.Forecasted.Customers)
	}
	// Full effect by month 3; months 3..12 are flat.
	for m := 3; m <= 12; m++ {
		if !almostEqual(res.TimeSeries[m].Customers, last.Customers, 0.01) {
			t.Fatalf("month %d customers = %.1f, want flat %.1f", m, res.TimeSeries[m].Customers, last.Customers)
		}
	}
	// Month 1 sits a third of the way in.
	third := res.Baseline.Customers + (res.Forecasted.Customers-res.Baseline.Customers)/3
	if !almostEqual(res.TimeSeries[1].Customers, third, 0.01) {
		t.Fatalf("month 1 customers = %.1f, want %.1f", res.TimeSeries[1].Customers, third)
	}
}

func TestSimulateBaselineAggregate(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := models.Scenario{
		ID:       "baseline",
		Name:     "Current State",
		Category: models.CategoryBaseline,
		Config:   models.ScenarioConfig{Tier: models.TierAll},
	}

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if res.Baseline.Customers != 150000 {
		t.Fatalf("aggregate customers = %v, want 150000", res.Baseline.Customers)
	}
	if res.Baseline != res.Forecasted {
		t.Fatal("baseline mode must forecast no change")
	}
	if res.Delta != (models.DeltaSet{}) {
		t.Fatalf("baseline delta = %+v, want zero", res.Delta)
	}
	if res.Elasticity != 0 {
		t.Fatalf("baseline elasticity = %v, want 0", res.Elasticity)
	}
	if res.ConfidenceInterval.Lower != res.ConfidenceInterval.Upper {
		t.Fatal("baseline interval must collapse to a point")
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "Baseline scenario: no pricing changes applied" {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if !res.ConstraintsMet {
		t.Fatal("baseline scenario must pass constraints")
	}

	// Flat 13-point series at the weighted price.
	wantPrice := (24.0*100000 + 12.0*50000) / 150000
	if len(res.TimeSeries) != 13 {
		t.Fatalf("series length = %d, want 13", len(res.TimeSeries))
	}
	for _, p := range res.TimeSeries {
		if !almostEqual(p.Customers, 150000, 0.01) {
			t.Fatalf("month %d customers = %v, want flat 150000", p.Month, p.Customers)
		}
		if !almostEqual(p.Revenue, 150000*wantPrice, 0.1) {
			t.Fatalf("month %d revenue = %v, want %v", p.Month, p.Revenue, 150000*wantPrice)
		}
	}
}

func TestBundleBaselineShare(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("bundle-launch", models.TierBundle, 15, 15)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if !almostEqual(res.Baseline.Customers, 15000, 0.01) {
		t.Fatalf("bundle baseline customers = %v, want 15000 (30%% of ad_free)", res.Baseline.Customers)
	}
	if res.IsNewTier {
		t.Fatal("bundle is a pricing variant, not a new tier")
	}
	if !containsWarning(res.Warnings, "Bundle baseline estimated at 30% of ad_free customers") {
		t.Fatalf("missing bundle estimate warning, got %v", res.Warnings)
	}
}

func TestNewTierProxyBaseline(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("premium-intro", models.TierPremium, 18, 18)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if !almostEqual(res.Baseline.Customers, 50000*0.40, 0.01) {
		t.Fatalf("proxy baseline customers = %v, want %v", res.Baseline.Customers, 50000*0.40)
	}
	if !res.IsNewTier {
		t.Fatal("premium must be flagged as a new tier")
	}
	if res.ProxyTier != models.TierAdFree {
		t.Fatalf("proxy tier = %q, want %q", res.ProxyTier, models.TierAdFree)
	}
	if !containsWarning(res.Warnings, `Tier "premium" has no history; baseline proxied from "ad_free"`) {
		t.Fatalf("missing proxy warning, got %v", res.Warnings)
	}
}

func TestNoHistoryError(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("unknown", "mystery", 10, 11)

	_, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if !errors.Is(err, domrepo.ErrNoHistory) {
		t.Fatalf("err = %v, want ErrNoHistory", err)
	}
}

func TestWholeTierWarningsOnAggressiveIncrease(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("hike-25", models.TierAdSupported, 24, 30)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if !containsWarning(res.Warnings, "Price increase of 25.0% exceeds 20% threshold") {
		t.Fatalf("missing price warning, got %v", res.Warnings)
	}
	// (30/24)^-2.1 shrinks the base well past the 5% line.
	found := false
	for _, w := range res.Warnings {
		if len(w) > 16 && w[:16] == "Customer decline" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing customer decline warning, got %v", res.Warnings)
	}
}

func TestResultCaching(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("cut-2", models.TierAdSupported, 24, 22)
	ctx := context.Background()

	r1, err := sim.SimulateScenario(ctx, sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	r2, err := sim.SimulateScenario(ctx, sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if r1 != r2 {
		t.Fatal("second run must hit the result cache")
	}
	r3, err := sim.SimulateScenario(ctx, sc, SimulateOptions{SkipCache: true})
	if err != nil {
		t.Fatalf("skip-cache run: %v", err)
	}
	if r3 == r1 {
		t.Fatal("SkipCache must bypass the result cache")
	}
	// A different cohort is a different cache entry.
	r4, err := sim.SimulateScenario(ctx, sc, SimulateOptions{Cohort: "price_sensitive"})
	if err != nil {
		t.Fatalf("cohort run: %v", err)
	}
	if r4 == r1 {
		t.Fatal("cohort-qualified run must not share the default cache entry")
	}
}

func TestResultCacheKeyDefaults(t *testing.T) {
	if got := resultCacheKey("s1", SimulateOptions{}); got != "sim:s1:tier:baseline" {
		t.Fatalf("key = %q", got)
	}
	got := resultCacheKey("s1", SimulateOptions{TargetSegment: "organic:heavy", Cohort: "loyal"})
	if got != "sim:s1:organic:heavy:loyal" {
		t.Fatalf("key = %q", got)
	}
}

func TestConstraintsMet(t *testing.T) {
	f := false
	cases := []struct {
		name string
		sc   models.Scenario
		want bool
	}{
		{"no constraints", priceScenario("a", models.TierAdFree, 12, 13), true},
		{"platform flag false", func() models.Scenario {
			sc := priceScenario("b", models.TierAdFree, 12, 13)
			sc.Constraints.PlatformCompliant = &f
			return sc
		}(), false},
		{"below min price", func() models.Scenario {
			sc := priceScenario("c", models.TierAdFree, 12, 9)
			sc.Constraints.MinPrice = 10
			return sc
		}(), false},
		{"above max price", func() models.Scenario {
			sc := priceScenario("d", models.TierAdFree, 12, 21)
			sc.Constraints.MaxPrice = 20
			return sc
		}(), false},
		{"within bounds", func() models.Scenario {
			sc := priceScenario("e", models.TierAdFree, 12, 13)
			sc.Constraints.MinPrice = 10
			sc.Constraints.MaxPrice = 20
			return sc
		}(), true},
	}
	for _, tc := range cases {
		if got := constraintsMet(tc.sc); got != tc.want {
			t.Errorf("%s: constraintsMet = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAdFreeShareSubstitutesForecast(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sc := priceScenario("cut-free", models.TierAdFree, 12, 11)

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	want := res.Forecasted.Customers / (res.Forecasted.Customers + 100000)
	if !almostEqual(res.AdFreeShare, want, 1e-9) {
		t.Fatalf("ad-free share = %v, want %v", res.AdFreeShare, want)
	}
	if res.AdFreeShare <= 50000.0/150000.0 {
		t.Fatal("a price cut on ad_free must raise its forecasted share")
	}
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func containsWarning(warnings []string, want string) bool {
	for _, w := range warnings {
		if w == want {
			return true
		}
	}
	return false
}

// failingPredictionProvider simulates a statistical engine that is up but
// erroring on every model.
type failingPredictionProvider struct {
	calls int
}

func (f *failingPredictionProvider) PredictAcquisition(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	f.calls++
	return domsvc.Prediction{}, errors.New("engine unavailable")
}

func (f *failingPredictionProvider) PredictChurn(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	f.calls++
	return domsvc.Prediction{}, errors.New("engine unavailable")
}

func (f *failingPredictionProvider) PredictMigration(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	f.calls++
	return domsvc.Prediction{}, errors.New("engine unavailable")
}

type fixedChurnProvider struct {
	rate float64
}

func (f *fixedChurnProvider) PredictAcquisition(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	return domsvc.Prediction{}, errors.New("not modelled")
}

func (f *fixedChurnProvider) PredictChurn(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	return domsvc.Prediction{Forecast: f.rate, Model: "gradient_boost"}, nil
}

func (f *fixedChurnProvider) PredictMigration(ctx context.Context, s models.Scenario) (domsvc.Prediction, error) {
	return domsvc.Prediction{}, errors.New("not modelled")
}

func TestStatsEngineFailureKeepsLocalForecast(t *testing.T) {
	params := emptyParams{}
	adj := identityAdjuster{}
	metrics := &fakeMetrics{}
	sim := NewScenarioSimulator(testSeries(), params, nil, elasticity.NewResolver(params, nil, adj), adj, metrics)

	prov := &failingPredictionProvider{}
	sim.SetPredictionProvider(prov)

	sc := priceScenario("cut-2", models.TierAdSupported, 24, 22)
	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{UseStats: true, SkipCache: true})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if prov.calls == 0 {
		t.Fatal("prediction provider was never consulted")
	}

	// The local power-law forecast must survive the engine failure.
	wantCustomers := 100000 * math.Pow(22.0/24.0, -2.1)
	if !almostEqual(res.Forecasted.Customers, wantCustomers, 1) {
		t.Fatalf("forecasted customers = %.1f, want local forecast %.1f", res.Forecasted.Customers, wantCustomers)
	}
	if metrics.errors["stats_fallback"] != 1 {
		t.Fatalf("stats_fallback errors = %d, want 1", metrics.errors["stats_fallback"])
	}
}

func TestStatsEngineOverridesChurnForecast(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	sim.SetPredictionProvider(&fixedChurnProvider{rate: 0.2})

	sc := priceScenario("raise-2", models.TierAdSupported, 24, 26)
	sc.ModelType = models.ModelChurn

	res, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{UseStats: true, SkipCache: true})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if res.Forecasted.RepeatLossRate != 0.2 {
		t.Fatalf("forecasted repeat loss = %v, want engine value 0.2", res.Forecasted.RepeatLossRate)
	}
	if !almostEqual(res.Delta.RepeatLossRate, 0.2-0.08, 1e-9) {
		t.Fatalf("repeat loss delta = %v, want %v", res.Delta.RepeatLossRate, 0.2-0.08)
	}
}

func TestStatsIgnoredWithoutOptIn(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)
	prov := &failingPredictionProvider{}
	sim.SetPredictionProvider(prov)

	sc := priceScenario("cut-2", models.TierAdSupported, 24, 22)
	if _, err := sim.SimulateScenario(context.Background(), sc, SimulateOptions{SkipCache: true}); err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if prov.calls != 0 {
		t.Fatalf("provider consulted %d times without opt-in, want 0", prov.calls)
	}
}
