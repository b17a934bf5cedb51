package usecase

import (
	"fmt"
	"math"
	"sort"

	"PriceLens/internal/domain/models"
	applogger "PriceLens/pkg/logger"
)

// Hard-fail score for scenarios breaching the churn cap under the
// churn-capped objective.
const churnCapFailScore = -1000

// Default churn cap when the caller supplies none.
const defaultRepeatLossCap = 0.05

// Default ad_free mix target for the mix-targeted objective.
const defaultTargetMixShare = 0.35

// DecisionEngine scores already-simulated scenarios against a business
// objective, filters by constraints and produces a ranked top three.
// Ranking is synchronous and deterministic; it reads results, never
// mutates them.
type DecisionEngine struct {
	topN int
	l    *applogger.Logger
}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{topN: 3}
}

// SetLogger injects a structured logger.
func (e *DecisionEngine) SetLogger(l *applogger.Logger) { e.l = l }

// RankScenarios filters by constraints, scores against the objective and
// returns the top slice in descending score order. Empty input or a fully
// filtered set yields an empty slice, never an error.
func (e *DecisionEngine) RankScenarios(results []*models.SimulationResult, objective string, constraints models.RankingConstraints) []*models.RankedScenario {
	if len(results) == 0 {
		return []*models.RankedScenario{}
	}

	ranked := make([]*models.RankedScenario, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if !e.passesConstraints(r, constraints) {
			if e.l != nil {
				e.l.Debug("scenario filtered by constraints", applogger.String("scenario", r.ScenarioID))
			}
			continue
		}
		score := e.score(r, objective, constraints)
		if objective == models.ObjectiveChurnCapped && score == churnCapFailScore {
			// Breaching the cap disqualifies outright; the scenario never
			// appears in churn-capped output, however strong its revenue.
			continue
		}
		rs := &models.RankedScenario{
			SimulationResult:  r,
			DecisionScore:     score,
			RiskLevel:         e.riskLevel(r),
			PassesConstraints: true,
		}
		rs.Rationale = e.rationale(rs, objective)
		ranked = append(ranked, rs)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DecisionScore > ranked[j].DecisionScore
	})

	if len(ranked) > e.topN {
		ranked = ranked[:e.topN]
	}
	for i, rs := range ranked {
		rs.Rank = i + 1
	}
	return ranked
}

// score applies the objective's closed-form formula to the result's delta
// fields. Note the deliberate asymmetry: growth-max penalizes churn by
// absolute value while revenue-max penalizes the signed delta, crediting
// churn reductions.
func (e *DecisionEngine) score(r *models.SimulationResult, objective string, constraints models.RankingConstraints) float64 {
	d := r.Delta
	switch objective {
	case models.ObjectiveGrowthMax:
		return 2*d.CustomersPct + d.RevenuePct - 50*math.Abs(d.RepeatLossRate)
	case models.ObjectiveRevenueMax:
		return 2*d.RevenuePct + d.AOVPct - 200*d.RepeatLossRate
	case models.ObjectiveChurnCapped:
		cap := constraints.RepeatLossCap
		if cap <= 0 {
			cap = defaultRepeatLossCap
		}
		if d.RepeatLossRate > cap {
			return churnCapFailScore
		}
		return -100*d.RepeatLossRate + d.RevenuePct
	case models.ObjectiveMixTargeted:
		target := constraints.TargetMixShare
		if target <= 0 {
			target = defaultTargetMixShare
		}
		return 100 - 100*math.Abs(r.AdFreeShare-target) + 0.5*d.AOVPct
	default:
		return d.RevenuePct
	}
}

// riskLevel accumulates weighted risk flags independently of the
// objective: churn magnitude at the 3%/5% thresholds, customer decline
// beyond 5%, revenue decline beyond 10%, and the new-tier flag.
func (e *DecisionEngine) riskLevel(r *models.SimulationResult) string {
	score := 0
	churnMag := math.Abs(r.Delta.RepeatLossRate)
	switch {
	case churnMag > 0.05:
		score += 3
	case churnMag > 0.03:
		score += 2
	}
	if r.Delta.CustomersPct < -5 {
		score++
	}
	if r.Delta.RevenuePct < -10 {
		score += 2
	}
	if r.IsNewTier {
		score++
	}
	switch {
	case score >= 4:
		return models.RiskHigh
	case score >= 2:
		return models.RiskMed
	default:
		return models.RiskLow
	}
}

// passesConstraints removes scenarios before scoring; a filtered scenario
// never appears in the output, even outside the top slice. Scenarios whose
// own compliance validation failed are excluded as well.
func (e *DecisionEngine) passesConstraints(r *models.SimulationResult, c models.RankingConstraints) bool {
	if !r.ConstraintsMet {
		return false
	}
	if c.RepeatLossCap > 0 && r.Delta.RepeatLossRate > c.RepeatLossCap {
		return false
	}
	if c.RevenueFloor != 0 && r.Delta.RevenuePct < c.RevenueFloor {
		return false
	}
	if c.CustomerFloor != 0 && r.Delta.CustomersPct < c.CustomerFloor {
		return false
	}
	return true
}

// rationale generates the per-objective explanation text. The wording is
// documentation-facing; the contract is which deltas it surfaces and in
// what order.
func (e *DecisionEngine) rationale(rs *models.RankedScenario, objective string) string {
	d := rs.Delta
	dir := func(v float64) string {
		if v >= 0 {
			return "grows"
		}
		return "shrinks"
	}
	switch objective {
	case models.ObjectiveGrowthMax:
		return fmt.Sprintf("%s: customer base %s %.1f%%, revenue %s %.1f%%, churn shifts %.2fpp; risk %s",
			rs.ScenarioName, dir(d.CustomersPct), math.Abs(d.CustomersPct),
			dir(d.RevenuePct), math.Abs(d.RevenuePct), d.RepeatLossRate*100, rs.RiskLevel)
	case models.ObjectiveChurnCapped:
		return fmt.Sprintf("%s: churn shifts %.2fpp within cap, revenue %s %.1f%%; risk %s",
			rs.ScenarioName, d.RepeatLossRate*100, dir(d.RevenuePct), math.Abs(d.RevenuePct), rs.RiskLevel)
	case models.ObjectiveMixTargeted:
		return fmt.Sprintf("%s: ad-free share reaches %.1f%%, AOV %s %.1f%%; risk %s",
			rs.ScenarioName, rs.AdFreeShare*100, dir(d.AOVPct), math.Abs(d.AOVPct), rs.RiskLevel)
	default: // revenue-max and fallback
		return fmt.Sprintf("%s: revenue %s %.1f%%, AOV %s %.1f%%, churn shifts %.2fpp; risk %s",
			rs.ScenarioName, dir(d.RevenuePct), math.Abs(d.RevenuePct),
			dir(d.AOVPct), math.Abs(d.AOVPct), d.RepeatLossRate*100, rs.RiskLevel)
	}
}
