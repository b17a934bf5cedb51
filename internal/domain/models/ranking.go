package models

// Ranking objectives.
const (
	ObjectiveGrowthMax   = "growth-max"
	ObjectiveRevenueMax  = "revenue-max"
	ObjectiveChurnCapped = "churn-capped"
	ObjectiveMixTargeted = "mix-targeted"
)

// Risk levels.
const (
	RiskLow  = "Low"
	RiskMed  = "Med"
	RiskHigh = "High"
)

// RankingConstraints filter scenarios before scoring. Zero values disable a
// constraint except RepeatLossCap, which defaults to 0.05 under the
// churn-capped objective.
type RankingConstraints struct {
	RepeatLossCap  float64 `json:"repeat_loss_cap"`
	RevenueFloor   float64 `json:"revenue_floor_pct"`
	CustomerFloor  float64 `json:"customer_floor_pct"`
	TargetMixShare float64 `json:"target_mix_share"`
}

// RankedScenario augments a simulation result with an objective score, a
// qualitative risk level and generated rationale. Computed fresh on every
// ranking call, never persisted.
type RankedScenario struct {
	*SimulationResult
	DecisionScore     float64 `json:"decision_score"`
	RiskLevel         string  `json:"risk_level"`
	PassesConstraints bool    `json:"passes_constraints"`
	Rank              int     `json:"rank,omitempty"`
	Rationale         string  `json:"rationale"`
}
