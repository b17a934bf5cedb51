package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	"PriceLens/internal/services/forecast"
	applogger "PriceLens/pkg/logger"
)

// Spillover policy: a capped share of the targeted segment migrates to the
// other segments proportionally to their size.
const (
	spilloverRateFactor = 0.25
	spilloverRateCap    = 0.10
)

// simulateSegment runs the segment-targeted mode: direct demand/churn
// impact on the targeted segment plus spillover redistribution to its
// sibling segments. An absent segmentation engine degrades to whole-tier
// analysis rather than failing.
func (s *ScenarioSimulator) simulateSegment(ctx context.Context, sc models.Scenario, opts SimulateOptions) (*models.SimulationResult, error) {
	if s.segments == nil {
		if s.l != nil {
			s.l.Warn("segmentation engine unavailable, degrading to tier-level analysis",
				applogger.String("scenario", sc.ID))
		}
		res, err := s.simulateWholeTier(ctx, sc, opts)
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, "Segment data unavailable; tier-level analysis only")
		return res, nil
	}

	tier := sc.Config.Tier
	target, err := s.segments.Segment(ctx, tier, opts.TargetSegment)
	if err != nil {
		return nil, fmt.Errorf("segment %q in tier %q: %w", opts.TargetSegment, tier, domrepo.ErrSegmentNotFound)
	}

	tierBase, err := s.baselineForTier(ctx, tier)
	if err != nil {
		return nil, err
	}

	// Aggregate KPI baseline over every segment sharing an axis with the
	// target, weighted by segment size.
	related, ferr := s.segments.FilterSegments(ctx, models.SegmentFilter{
		Tier:         tier,
		Acquisition:  target.Acquisition,
		Engagement:   target.Engagement,
		Monetization: target.Monetization,
	})
	segKPIs := target.KPIs
	if ferr == nil && len(related) > 0 {
		segKPIs = s.segments.AggregateKPIs(related)
	}

	mult := models.Identity()
	if s.adjuster != nil {
		if m, merr := s.adjuster.Multipliers(ctx, opts.Cohort); merr == nil {
			mult = m
		}
		segKPIs = s.adjuster.Apply(segKPIs, mult)
	}

	cur, next := sc.Config.CurrentPrice, sc.Config.NewPrice
	demandE := s.resolver.Resolve(ctx, tier, opts.TargetSegment, models.AxisAcquisition, opts.Cohort)
	churnE := s.resolver.Resolve(ctx, tier, opts.TargetSegment, models.AxisEngagement, opts.Cohort)

	demand := forecast.Demand(target.Customers, cur, next, demandE)
	demandChange := demand.PercentChange / 100 // fraction
	churn := forecast.Churn(segKPIs.RepeatLossRate, churnE, sc.Config.PriceChangePct)

	directDelta := demand.Change

	// Spillover: capped migration rate, redistributed to the other
	// segments proportionally to their size. A price increase pushes
	// customers out of the target; a decrease pulls them in.
	rate := math.Min(math.Abs(demandChange)*spilloverRateFactor, spilloverRateCap)
	migrants := rate * target.Customers
	outflow := sc.Config.PriceChangePct > 0

	all, aerr := s.segments.SegmentsForTier(ctx, tier)
	var spill []models.SpilloverEntry
	var othersTotal float64
	if aerr == nil {
		for _, seg := range all {
			if seg.CompositeKey == target.CompositeKey {
				continue
			}
			othersTotal += seg.Customers
		}
		for _, seg := range all {
			if seg.CompositeKey == target.CompositeKey || othersTotal <= 0 {
				continue
			}
			share := seg.Customers / othersTotal
			delta := migrants * share
			if !outflow {
				delta = -delta
			}
			spill = append(spill, models.SpilloverEntry{SegmentKey: seg.CompositeKey, Delta: delta})
		}
	}
	targetSpill := -migrants
	if !outflow {
		targetSpill = migrants
	}
	var othersSpill float64
	for _, e := range spill {
		othersSpill += e.Delta
	}

	// Tier totals: baseline aggregate plus target delta plus net spillover.
	tierDelta := directDelta + targetSpill + othersSpill
	fcCustomers := tierBase.ActiveCustomers + tierDelta
	fcAOV := segKPIs.AOV * (1 + sc.Config.PriceChangePct/100)
	baseRevenue := tierBase.ActiveCustomers * cur
	fcRevenue := fcCustomers * next
	if cur <= 0 || next <= 0 {
		baseRevenue = tierBase.Revenue
		fcRevenue = tierBase.Revenue
	}

	res := &models.SimulationResult{
		ScenarioID:    sc.ID,
		ScenarioName:  sc.Name,
		ModelType:     sc.ModelType,
		Tier:          tier,
		Timestamp:     time.Now(),
		TargetSegment: target.CompositeKey,
		Spillover:     spill,
		Baseline: models.MetricSet{
			Customers:      tierBase.ActiveCustomers,
			Revenue:        baseRevenue,
			AOV:            segKPIs.AOV,
			RepeatLossRate: segKPIs.RepeatLossRate,
			CLTV:           segKPIs.AOV * assumedLifetimeMonths,
			NetAdds:        tierBase.NewCustomers - tierBase.ActiveCustomers*tierBase.RepeatLossRate,
		},
		Forecasted: models.MetricSet{
			Customers:      fcCustomers,
			Revenue:        fcRevenue,
			AOV:            fcAOV,
			RepeatLossRate: churn.ForecastedRate,
			CLTV:           fcAOV * assumedLifetimeMonths,
			NetAdds:        tierBase.NewCustomers - fcCustomers*churn.ForecastedRate,
		},
		Elasticity:         demandE,
		ConfidenceInterval: confidence(fcCustomers, demandE),
		IsNewTier:          tierBase.IsNewTier,
		ProxyTier:          tierBase.ProxyTier,
	}
	res.Delta = deltas(res.Baseline, res.Forecasted)
	res.TimeSeries = buildTimeSeries(tierBase.ActiveCustomers, fcCustomers, segKPIs.RepeatLossRate, churn.ForecastedRate, cur, next)
	res.Warnings = segmentWarnings(sc, res, target, demandChange, migrants)
	res.ConstraintsMet = constraintsMet(sc)
	res.AdFreeShare = s.adFreeShare(ctx, tier, fcCustomers)
	return res, nil
}

func segmentWarnings(sc models.Scenario, res *models.SimulationResult, target models.Segment, demandChange, migrants float64) []string {
	var w []string
	if math.Abs(sc.Config.PriceChangePct) > 15 {
		w = append(w, fmt.Sprintf("Segment price change of %.1f%% exceeds 15%% threshold", sc.Config.PriceChangePct))
	}
	if math.Abs(demandChange) > 0.25 {
		w = append(w, fmt.Sprintf("Demand sensitivity of %.1f%% exceeds 25%% threshold", math.Abs(demandChange)*100))
	}
	if res.Forecasted.RepeatLossRate > 0.20 {
		w = append(w, fmt.Sprintf("Forecasted churn of %.1f%% exceeds 20%% threshold", res.Forecasted.RepeatLossRate*100))
	}
	if target.Customers > 0 && migrants/target.Customers > 0.15 {
		w = append(w, fmt.Sprintf("Spillover migration of %.0f customers exceeds 15%% of segment size", migrants))
	}
	return w
}
