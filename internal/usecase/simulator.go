package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	domsvc "PriceLens/internal/domain/service"
	"PriceLens/internal/service/cache"
	"PriceLens/internal/services/elasticity"
	"PriceLens/internal/services/forecast"
	"PriceLens/internal/services/kpi"
	applogger "PriceLens/pkg/logger"
)

// Model policy constants.
const (
	assumedLifetimeMonths = 24
	bundleCustomerShare   = 0.30 // bundle baseline = 30% of ad_free customers
	newTierScaleFactor    = 0.40 // proxy-tier customer scaling for hypothetical tiers
	rampMonths            = 3    // months until full effect
	seriesMonths          = 12
	resultCacheTTL        = 5 * time.Minute
)

// Proxy mapping for hypothetical tiers absent from historical data.
var newTierProxy = map[string]string{
	models.TierBasic:   models.TierAdSupported,
	models.TierPremium: models.TierAdFree,
}

// SimulateOptions tune one simulation call. The zero value runs a
// whole-tier simulation for the baseline cohort without the statistical
// engine.
type SimulateOptions struct {
	Cohort        string
	TargetSegment string
	UseStats      bool
	SkipCache     bool
}

// ScenarioSimulator orchestrates baseline extraction, elasticity
// resolution, the forecasters and time-series synthesis into a full
// scenario forecast. All math is deterministic; the only shared state is
// the result cache.
type ScenarioSimulator struct {
	series   domrepo.TierSeriesStore
	params   domrepo.ParamStore
	segments domrepo.SegmentStore
	resolver *elasticity.Resolver
	adjuster domsvc.CohortAdjuster
	stats    domsvc.PredictionProvider
	sink     domrepo.EventSink
	metrics  domrepo.Metrics
	results  *cache.TTLCache
	l        *applogger.Logger
}

func NewScenarioSimulator(
	series domrepo.TierSeriesStore,
	params domrepo.ParamStore,
	segments domrepo.SegmentStore,
	resolver *elasticity.Resolver,
	adjuster domsvc.CohortAdjuster,
	metrics domrepo.Metrics,
) *ScenarioSimulator {
	return &ScenarioSimulator{
		series:   series,
		params:   params,
		segments: segments,
		resolver: resolver,
		adjuster: adjuster,
		metrics:  metrics,
		results:  cache.NewTTLCache(),
	}
}

// SetPredictionProvider wires the optional statistical engine.
func (s *ScenarioSimulator) SetPredictionProvider(p domsvc.PredictionProvider) { s.stats = p }

// SetEventSink wires the optional simulation audit sink.
func (s *ScenarioSimulator) SetEventSink(sink domrepo.EventSink) { s.sink = sink }

// SetLogger injects a structured logger.
func (s *ScenarioSimulator) SetLogger(l *applogger.Logger) { s.l = l }

// SimulateScenario produces a full forecast for one scenario. Mode is
// chosen by scenario shape and options: tier "all" runs the baseline
// aggregation, a set target segment runs the segment-targeted path, and
// everything else runs whole-tier.
func (s *ScenarioSimulator) SimulateScenario(ctx context.Context, sc models.Scenario, opts SimulateOptions) (*models.SimulationResult, error) {
	start := time.Now()
	key := resultCacheKey(sc.ID, opts)
	if !opts.SkipCache {
		if v, ok := s.results.Get(key); ok {
			if r, ok2 := v.(*models.SimulationResult); ok2 {
				return r, nil
			}
		}
	}

	var (
		res *models.SimulationResult
		err error
	)
	switch {
	case sc.Config.Tier == models.TierAll:
		res, err = s.simulateBaseline(ctx, sc)
	case opts.TargetSegment != "" && opts.TargetSegment != "all":
		res, err = s.simulateSegment(ctx, sc, opts)
	default:
		res, err = s.simulateWholeTier(ctx, sc, opts)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("simulate")
		}
		return nil, err
	}

	if res.ModelType == "" {
		res.ModelType = models.ModelAcquisition
	}
	s.results.Set(key, res, resultCacheTTL)
	if s.metrics != nil {
		s.metrics.RecordLatency("simulate", time.Since(start).Seconds())
	}
	if s.sink != nil {
		if perr := s.sink.PublishResult(ctx, res); perr != nil && s.l != nil {
			s.l.Warn("simulation event publish failed", applogger.Error(perr))
		}
	}
	return res, nil
}

// SimulateSegmentScenario is the segment-targeted entry point.
func (s *ScenarioSimulator) SimulateSegmentScenario(ctx context.Context, sc models.Scenario, opts SimulateOptions) (*models.SimulationResult, error) {
	if opts.TargetSegment == "" {
		opts.TargetSegment = "all"
	}
	return s.SimulateScenario(ctx, sc, opts)
}

// simulateWholeTier applies the forecasters directly at tier level.
func (s *ScenarioSimulator) simulateWholeTier(ctx context.Context, sc models.Scenario, opts SimulateOptions) (*models.SimulationResult, error) {
	base, err := s.baselineForTier(ctx, sc.Config.Tier)
	if err != nil {
		return nil, err
	}

	mult := models.Identity()
	if s.adjuster != nil {
		if m, merr := s.adjuster.Multipliers(ctx, opts.Cohort); merr == nil {
			mult = m
		}
	}
	adjusted := models.KPIRecord{RepeatLossRate: base.RepeatLossRate, AOV: base.AOV}
	if s.adjuster != nil {
		adjusted = s.adjuster.Apply(adjusted, mult)
	}

	cur, next := sc.Config.CurrentPrice, sc.Config.NewPrice
	demandE := s.resolver.Resolve(ctx, sc.Config.Tier, "", models.AxisAcquisition, opts.Cohort)
	churnE := s.resolver.Resolve(ctx, sc.Config.Tier, "", models.AxisEngagement, opts.Cohort)

	demand := forecast.Demand(base.ActiveCustomers, cur, next, demandE)
	churn := forecast.Churn(adjusted.RepeatLossRate, churnE, sc.Config.PriceChangePct)
	acq := forecast.AcquisitionByTenure(base.NewCustomers, cur, next, nil)

	if opts.UseStats && s.stats != nil {
		s.applyStatsOverride(ctx, sc, &demand, &churn, &acq)
	}

	fcCustomers := demand.ForecastedCustomers
	fcAOV := adjusted.AOV * (1 + sc.Config.PriceChangePct/100)
	baseRevenue := base.ActiveCustomers * cur
	fcRevenue := fcCustomers * next
	if cur <= 0 || next <= 0 {
		baseRevenue = base.Revenue
		fcRevenue = base.Revenue
	}

	baseNet := base.NewCustomers - base.ActiveCustomers*base.RepeatLossRate
	fcNet := acq.ForecastedNew - fcCustomers*churn.ForecastedRate

	res := &models.SimulationResult{
		ScenarioID:   sc.ID,
		ScenarioName: sc.Name,
		ModelType:    sc.ModelType,
		Tier:         sc.Config.Tier,
		Timestamp:    time.Now(),
		Baseline: models.MetricSet{
			Customers:      base.ActiveCustomers,
			Revenue:        baseRevenue,
			AOV:            adjusted.AOV,
			RepeatLossRate: adjusted.RepeatLossRate,
			CLTV:           adjusted.AOV * assumedLifetimeMonths,
			NetAdds:        baseNet,
		},
		Forecasted: models.MetricSet{
			Customers:      fcCustomers,
			Revenue:        fcRevenue,
			AOV:            fcAOV,
			RepeatLossRate: churn.ForecastedRate,
			CLTV:           fcAOV * assumedLifetimeMonths,
			NetAdds:        fcNet,
		},
		Elasticity:         demandE,
		ConfidenceInterval: confidence(fcCustomers, demandE),
		IsNewTier:          base.IsNewTier,
		ProxyTier:          base.ProxyTier,
	}
	res.Delta = deltas(res.Baseline, res.Forecasted)
	res.TimeSeries = buildTimeSeries(base.ActiveCustomers, fcCustomers, adjusted.RepeatLossRate, churn.ForecastedRate, cur, next)
	res.Warnings = tierWarnings(sc, res, base)
	res.ConstraintsMet = constraintsMet(sc)
	res.AdFreeShare = s.adFreeShare(ctx, sc.Config.Tier, fcCustomers)
	return res, nil
}

// simulateBaseline aggregates current metrics across all tiers, weighted by
// customer count. No elasticity applies and the series stays flat.
func (s *ScenarioSimulator) simulateBaseline(ctx context.Context, sc models.Scenario) (*models.SimulationResult, error) {
	tiers := []string{models.TierAdSupported, models.TierAdFree}
	baselines := make([]models.BaselineMetrics, 0, len(tiers))
	for _, t := range tiers {
		b, err := s.baselineForTier(ctx, t)
		if err != nil {
			continue
		}
		baselines = append(baselines, b)
	}
	if len(baselines) == 0 {
		return nil, fmt.Errorf("baseline scenario: %w", domrepo.ErrNoHistory)
	}

	agg := kpi.WeightedBaseline(baselines)
	set := models.MetricSet{
		Customers:      agg.ActiveCustomers,
		Revenue:        agg.Revenue,
		AOV:            agg.AOV,
		RepeatLossRate: agg.RepeatLossRate,
		CLTV:           agg.AOV * assumedLifetimeMonths,
		NetAdds:        agg.NewCustomers - agg.ActiveCustomers*agg.RepeatLossRate,
	}

	series := make([]models.TimeSeriesPoint, 0, seriesMonths+1)
	for m := 0; m <= seriesMonths; m++ {
		series = append(series, models.TimeSeriesPoint{
			Month:          m,
			Customers:      agg.ActiveCustomers,
			RepeatLossRate: agg.RepeatLossRate,
			Revenue:        agg.ActiveCustomers * agg.Price,
		})
	}

	return &models.SimulationResult{
		ScenarioID:         sc.ID,
		ScenarioName:       sc.Name,
		ModelType:          sc.ModelType,
		Tier:               models.TierAll,
		Timestamp:          time.Now(),
		Baseline:           set,
		Forecasted:         set,
		Delta:              models.DeltaSet{},
		Elasticity:         0,
		ConfidenceInterval: models.ConfidenceInterval{Lower: agg.ActiveCustomers, Upper: agg.ActiveCustomers},
		TimeSeries:         series,
		Warnings:           []string{"Baseline scenario: no pricing changes applied"},
		ConstraintsMet:     true,
		AdFreeShare:        s.adFreeShare(ctx, "", 0),
	}, nil
}

// applyStatsOverride substitutes the statistical engine's prediction for
// the lens matching the scenario's model type. Any engine failure keeps the
// local forecast; the engine is an alternative data source, never a
// dependency.
func (s *ScenarioSimulator) applyStatsOverride(ctx context.Context, sc models.Scenario, demand *forecast.DemandForecast, churn *forecast.ChurnForecast, acq *forecast.AcquisitionForecast) {
	var (
		p   domsvc.Prediction
		err error
	)
	switch sc.ModelType {
	case models.ModelChurn:
		p, err = s.stats.PredictChurn(ctx, sc)
		if err == nil && p.Forecast >= 0 && p.Forecast <= 1 {
			churn.Change = p.Forecast - churn.BaselineRate
			churn.ForecastedRate = p.Forecast
			if churn.BaselineRate != 0 {
				churn.PercentChange = churn.Change / churn.BaselineRate * 100
			}
		}
	case models.ModelMigration:
		p, err = s.stats.PredictMigration(ctx, sc)
		if err == nil && p.Forecast > 0 {
			demand.Change = p.Forecast - demand.BaseCustomers
			demand.ForecastedCustomers = p.Forecast
			if demand.BaseCustomers != 0 {
				demand.PercentChange = demand.Change / demand.BaseCustomers * 100
			}
		}
	default:
		p, err = s.stats.PredictAcquisition(ctx, sc)
		if err == nil && p.Forecast > 0 {
			acq.Change = p.Forecast - acq.BaselineNew
			acq.ForecastedNew = p.Forecast
			if acq.BaselineNew != 0 {
				acq.PercentChange = acq.Change / acq.BaselineNew * 100
			}
		}
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("stats_fallback")
		}
		if s.l != nil {
			s.l.Debug("stats engine unavailable, local forecast used",
				applogger.String("scenario", sc.ID), applogger.Error(err))
		}
	}
}

// baselineForTier extracts the current baseline for a tier from its latest
// weekly record. Hypothetical tiers are proxy-mapped and flagged; bundle is
// an ad_free pricing variant sized at 30% of ad_free customers and never
// flagged as new.
func (s *ScenarioSimulator) baselineForTier(ctx context.Context, tier string) (models.BaselineMetrics, error) {
	lookupTier := tier
	scale := 1.0
	isNew := false
	proxy := ""

	if tier == models.TierBundle {
		lookupTier = models.TierAdFree
		scale = bundleCustomerShare
	} else if pt, ok := newTierProxy[tier]; ok {
		lookupTier = pt
		scale = newTierScaleFactor
		isNew = true
		proxy = pt
	}

	rec, err := s.series.GetLatest(ctx, lookupTier)
	if err != nil {
		return models.BaselineMetrics{}, fmt.Errorf("baseline for tier %q: %w", tier, err)
	}
	return models.BaselineMetrics{
		Tier:            tier,
		ActiveCustomers: rec.ActiveCustomers * scale,
		NewCustomers:    rec.NewCustomers * scale,
		RepeatLossRate:  rec.RepeatLossRate,
		Revenue:         rec.Revenue * scale,
		AOV:             rec.AOV,
		Price:           rec.Price,
		IsNewTier:       isNew,
		ProxyTier:       proxy,
	}, nil
}

// adFreeShare estimates the forecasted ad_free share of the customer base,
// holding the untouched tier at its baseline. Best effort: any lookup miss
// yields zero.
func (s *ScenarioSimulator) adFreeShare(ctx context.Context, scenarioTier string, forecastedCustomers float64) float64 {
	adFree, err1 := s.series.GetLatest(ctx, models.TierAdFree)
	adSup, err2 := s.series.GetLatest(ctx, models.TierAdSupported)
	if err1 != nil || err2 != nil {
		return 0
	}
	free := adFree.ActiveCustomers
	mass := adSup.ActiveCustomers
	switch scenarioTier {
	case models.TierAdFree, models.TierBundle, models.TierPremium:
		free = forecastedCustomers
	case models.TierAdSupported, models.TierBasic:
		mass = forecastedCustomers
	}
	total := free + mass
	if total <= 0 {
		return 0
	}
	return free / total
}

// buildTimeSeries synthesizes the 13-point monthly series: month 0 is the
// baseline, and the effect ramps linearly to full strength by month 3.
func buildTimeSeries(baseCustomers, fcCustomers, baseRate, fcRate, curPrice, newPrice float64) []models.TimeSeriesPoint {
	out := make([]models.TimeSeriesPoint, 0, seriesMonths+1)
	for m := 0; m <= seriesMonths; m++ {
		progress := math.Min(float64(m)/rampMonths, 1)
		customers := baseCustomers + (fcCustomers-baseCustomers)*progress
		rate := baseRate + (fcRate-baseRate)*progress
		price := curPrice + (newPrice-curPrice)*progress
		out = append(out, models.TimeSeriesPoint{
			Month:          m,
			Customers:      customers,
			RepeatLossRate: rate,
			Revenue:        customers * price,
		})
	}
	return out
}

func deltas(base, fc models.MetricSet) models.DeltaSet {
	return models.DeltaSet{
		Customers:      fc.Customers - base.Customers,
		CustomersPct:   kpi.SafePctChange(base.Customers, fc.Customers),
		Revenue:        fc.Revenue - base.Revenue,
		RevenuePct:     kpi.SafePctChange(base.Revenue, fc.Revenue),
		AOV:            fc.AOV - base.AOV,
		AOVPct:         kpi.SafePctChange(base.AOV, fc.AOV),
		RepeatLossRate: fc.RepeatLossRate - base.RepeatLossRate,
		CLTV:           fc.CLTV - base.CLTV,
		NetAdds:        fc.NetAdds - base.NetAdds,
	}
}

func confidence(fcCustomers, e float64) models.ConfidenceInterval {
	band := 0.05 + 0.02*math.Abs(e)
	return models.ConfidenceInterval{
		Lower: fcCustomers * (1 - band),
		Upper: fcCustomers * (1 + band),
	}
}

func tierWarnings(sc models.Scenario, res *models.SimulationResult, base models.BaselineMetrics) []string {
	var w []string
	if base.RepeatLossRate > 0 {
		churnIncreasePct := (res.Forecasted.RepeatLossRate - base.RepeatLossRate) / base.RepeatLossRate * 100
		if churnIncreasePct > 10 {
			w = append(w, fmt.Sprintf("Churn increase of %.1f%% exceeds 10%% threshold", churnIncreasePct))
		}
	}
	if res.Delta.CustomersPct < -5 {
		w = append(w, fmt.Sprintf("Customer decline of %.1f%% exceeds 5%% threshold", -res.Delta.CustomersPct))
	}
	if sc.Config.PriceChangePct > 20 {
		w = append(w, fmt.Sprintf("Price increase of %.1f%% exceeds 20%% threshold", sc.Config.PriceChangePct))
	}
	if base.IsNewTier {
		w = append(w, fmt.Sprintf("Tier %q has no history; baseline proxied from %q", sc.Config.Tier, base.ProxyTier))
	}
	if sc.Config.Tier == models.TierBundle {
		w = append(w, "Bundle baseline estimated at 30% of ad_free customers")
	}
	return w
}

// constraintsMet validates declared compliance flags and price bounds.
// Absent flags default to compliant.
func constraintsMet(sc models.Scenario) bool {
	c := sc.Constraints
	flagOK := func(p *bool) bool { return p == nil || *p }
	if !flagOK(c.PlatformCompliant) || !flagOK(c.PriceChangeFreqOK) || !flagOK(c.NoticePeriodOK) {
		return false
	}
	if c.MinPrice > 0 && sc.Config.NewPrice < c.MinPrice {
		return false
	}
	if c.MaxPrice > 0 && sc.Config.NewPrice > c.MaxPrice {
		return false
	}
	return true
}

func resultCacheKey(id string, opts SimulateOptions) string {
	seg := opts.TargetSegment
	if seg == "" {
		seg = "tier"
	}
	cohort := opts.Cohort
	if cohort == "" {
		cohort = models.BaselineCohort
	}
	return "sim:" + id + ":" + seg + ":" + cohort
}
