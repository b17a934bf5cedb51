package usecase

import (
	"testing"

	"PriceLens/internal/domain/models"
)

func rankedInput(id string, d models.DeltaSet) *models.SimulationResult {
	return &models.SimulationResult{
		ScenarioID:     id,
		ScenarioName:   id,
		Delta:          d,
		ConstraintsMet: true,
	}
}

func TestRankGrowthMaxScore(t *testing.T) {
	e := NewDecisionEngine()
	r := rankedInput("a", models.DeltaSet{CustomersPct: 4, RevenuePct: 3, RepeatLossRate: -0.01})

	out := e.RankScenarios([]*models.SimulationResult{r}, models.ObjectiveGrowthMax, models.RankingConstraints{})
	if len(out) != 1 {
		t.Fatalf("ranked = %d, want 1", len(out))
	}
	// 2*4 + 3 - 50*|−0.01| = 10.5; churn movement is penalized in either
	// direction under growth-max.
	if !almostEqual(out[0].DecisionScore, 10.5, 1e-9) {
		t.Fatalf("score = %v, want 10.5", out[0].DecisionScore)
	}
	if out[0].Rank != 1 {
		t.Fatalf("rank = %d, want 1", out[0].Rank)
	}
}

func TestRankRevenueMaxCreditsChurnReduction(t *testing.T) {
	e := NewDecisionEngine()
	down := rankedInput("churn-down", models.DeltaSet{RevenuePct: 5, AOVPct: 2, RepeatLossRate: -0.01})
	up := rankedInput("churn-up", models.DeltaSet{RevenuePct: 5, AOVPct: 2, RepeatLossRate: 0.01})

	out := e.RankScenarios([]*models.SimulationResult{up, down}, models.ObjectiveRevenueMax, models.RankingConstraints{})
	if len(out) != 2 {
		t.Fatalf("ranked = %d, want 2", len(out))
	}
	// Signed penalty: 2*5 + 2 - 200*(-0.01) = 14 vs 2*5 + 2 - 200*0.01 = 10.
	if out[0].ScenarioID != "churn-down" {
		t.Fatalf("winner = %s, want churn-down", out[0].ScenarioID)
	}
	if !almostEqual(out[0].DecisionScore, 14, 1e-9) {
		t.Fatalf("score = %v, want 14", out[0].DecisionScore)
	}
	if !almostEqual(out[1].DecisionScore, 10, 1e-9) {
		t.Fatalf("runner-up score = %v, want 10", out[1].DecisionScore)
	}
}

func TestRankChurnCappedHardFail(t *testing.T) {
	e := NewDecisionEngine()
	within := rankedInput("within", models.DeltaSet{RevenuePct: 4, RepeatLossRate: 0.02})
	breach := rankedInput("breach", models.DeltaSet{RevenuePct: 20, RepeatLossRate: 0.06})

	out := e.RankScenarios([]*models.SimulationResult{breach, within}, models.ObjectiveChurnCapped, models.RankingConstraints{})
	// Breaching the default 5% cap excludes the scenario entirely, no
	// matter how good the revenue looks.
	if len(out) != 1 {
		t.Fatalf("ranked = %d, want 1", len(out))
	}
	if out[0].ScenarioID != "within" {
		t.Fatalf("survivor = %s, want within", out[0].ScenarioID)
	}
	if !almostEqual(out[0].DecisionScore, -100*0.02+4, 1e-9) {
		t.Fatalf("score = %v, want %v", out[0].DecisionScore, -100*0.02+4)
	}
}

func TestRankChurnCappedCustomCap(t *testing.T) {
	e := NewDecisionEngine()
	r := rankedInput("a", models.DeltaSet{RevenuePct: 4, RepeatLossRate: 0.02})

	// Same scenario breaches a tightened 1% cap. The cap constraint also
	// filters it outright before scoring.
	out := e.RankScenarios([]*models.SimulationResult{r}, models.ObjectiveChurnCapped, models.RankingConstraints{RepeatLossCap: 0.01})
	if len(out) != 0 {
		t.Fatalf("ranked = %d, want 0 (filtered by cap)", len(out))
	}
}

func TestRankMixTargetedScore(t *testing.T) {
	e := NewDecisionEngine()
	r := rankedInput("mix", models.DeltaSet{AOVPct: 4})
	r.AdFreeShare = 0.40

	out := e.RankScenarios([]*models.SimulationResult{r}, models.ObjectiveMixTargeted, models.RankingConstraints{})
	if len(out) != 1 {
		t.Fatalf("ranked = %d, want 1", len(out))
	}
	// 100 - 100*|0.40-0.35| + 0.5*4 = 97.
	if !almostEqual(out[0].DecisionScore, 97, 1e-9) {
		t.Fatalf("score = %v, want 97", out[0].DecisionScore)
	}
}

func TestRankUnknownObjectiveFallsBackToRevenue(t *testing.T) {
	e := NewDecisionEngine()
	r := rankedInput("a", models.DeltaSet{RevenuePct: 7, CustomersPct: 99})

	out := e.RankScenarios([]*models.SimulationResult{r}, "made-up", models.RankingConstraints{})
	if len(out) != 1 || !almostEqual(out[0].DecisionScore, 7, 1e-9) {
		t.Fatalf("fallback score = %v, want RevenuePct 7", out[0].DecisionScore)
	}
}

func TestRankConstraintFiltering(t *testing.T) {
	e := NewDecisionEngine()
	failed := rankedInput("failed-compliance", models.DeltaSet{RevenuePct: 50})
	failed.ConstraintsMet = false
	lowRev := rankedInput("low-revenue", models.DeltaSet{RevenuePct: -8})
	shrinking := rankedInput("shrinking", models.DeltaSet{RevenuePct: 5, CustomersPct: -12})
	ok := rankedInput("ok", models.DeltaSet{RevenuePct: 3, CustomersPct: 1})

	out := e.RankScenarios(
		[]*models.SimulationResult{failed, lowRev, shrinking, ok},
		models.ObjectiveRevenueMax,
		models.RankingConstraints{RevenueFloor: -5, CustomerFloor: -10},
	)
	if len(out) != 1 {
		t.Fatalf("ranked = %d, want 1", len(out))
	}
	if out[0].ScenarioID != "ok" {
		t.Fatalf("survivor = %s, want ok", out[0].ScenarioID)
	}
	if !out[0].PassesConstraints {
		t.Fatal("survivor must be marked as passing constraints")
	}
}

func TestRankTopThreeDescending(t *testing.T) {
	e := NewDecisionEngine()
	var in []*models.SimulationResult
	for i, rev := range []float64{1, 9, 5, 7, 3} {
		in = append(in, rankedInput(string(rune('a'+i)), models.DeltaSet{RevenuePct: rev}))
	}

	out := e.RankScenarios(in, models.ObjectiveRevenueMax, models.RankingConstraints{})
	if len(out) != 3 {
		t.Fatalf("ranked = %d, want top 3", len(out))
	}
	wantOrder := []string{"b", "d", "c"} // revenue 9, 7, 5
	for i, id := range wantOrder {
		if out[i].ScenarioID != id {
			t.Fatalf("position %d = %s, want %s", i, out[i].ScenarioID, id)
		}
		if out[i].Rank != i+1 {
			t.Fatalf("rank at position %d = %d, want %d", i, out[i].Rank, i+1)
		}
	}
	for i := 1; i < len(out); i++ {
		if out[i].DecisionScore > out[i-1].DecisionScore {
			t.Fatal("scores must be non-increasing")
		}
	}
}

func TestRankDeterministicForTies(t *testing.T) {
	e := NewDecisionEngine()
	a := rankedInput("a", models.DeltaSet{RevenuePct: 5})
	b := rankedInput("b", models.DeltaSet{RevenuePct: 5})

	for i := 0; i < 5; i++ {
		out := e.RankScenarios([]*models.SimulationResult{a, b}, models.ObjectiveRevenueMax, models.RankingConstraints{})
		if out[0].ScenarioID != "a" || out[1].ScenarioID != "b" {
			t.Fatalf("tie order changed on run %d: %s, %s", i, out[0].ScenarioID, out[1].ScenarioID)
		}
	}
}

func TestRankEmptyInput(t *testing.T) {
	e := NewDecisionEngine()
	out := e.RankScenarios(nil, models.ObjectiveGrowthMax, models.RankingConstraints{})
	if out == nil || len(out) != 0 {
		t.Fatalf("empty input must rank to an empty slice, got %v", out)
	}
}

func TestRiskLevels(t *testing.T) {
	e := NewDecisionEngine()
	cases := []struct {
		name string
		r    *models.SimulationResult
		want string
	}{
		{"quiet", rankedInput("q", models.DeltaSet{}), models.RiskLow},
		{"moderate churn", rankedInput("m", models.DeltaSet{RepeatLossRate: 0.04}), models.RiskMed},
		{"churn plus decline", rankedInput("c", models.DeltaSet{RepeatLossRate: 0.06, CustomersPct: -6}), models.RiskHigh},
		{"revenue collapse", rankedInput("r", models.DeltaSet{RevenuePct: -11}), models.RiskMed},
	}
	for _, tc := range cases {
		out := e.RankScenarios([]*models.SimulationResult{tc.r}, models.ObjectiveGrowthMax, models.RankingConstraints{})
		if len(out) != 1 {
			t.Fatalf("%s: ranked = %d, want 1", tc.name, len(out))
		}
		if out[0].RiskLevel != tc.want {
			t.Errorf("%s: risk = %s, want %s", tc.name, out[0].RiskLevel, tc.want)
		}
	}

	// The new-tier flag adds a point on top of churn risk.
	nt := rankedInput("nt", models.DeltaSet{RepeatLossRate: 0.06})
	nt.IsNewTier = true
	out := e.RankScenarios([]*models.SimulationResult{nt}, models.ObjectiveGrowthMax, models.RankingConstraints{})
	if out[0].RiskLevel != models.RiskHigh {
		t.Fatalf("new-tier churn risk = %s, want High", out[0].RiskLevel)
	}
}

func TestRankRationaleMentionsScenario(t *testing.T) {
	e := NewDecisionEngine()
	r := rankedInput("spring-cut", models.DeltaSet{CustomersPct: 2, RevenuePct: -1})

	out := e.RankScenarios([]*models.SimulationResult{r}, models.ObjectiveGrowthMax, models.RankingConstraints{})
	if len(out) != 1 || out[0].Rationale == "" {
		t.Fatal("expected a generated rationale")
	}
	if got := out[0].Rationale; len(got) < len("spring-cut") || got[:len("spring-cut")] != "spring-cut" {
		t.Fatalf("rationale %q must lead with the scenario name", got)
	}
}
