package models

// Requests for the scenario HTTP endpoints. Defined in domain for
// consistency and reuse.

type SimulateRequest struct {
	Scenario Scenario `json:"scenario" validate:"required"`
	Cohort   string   `json:"cohort" default:"baseline"`
	UseStats bool     `json:"use_stats" default:"true"`
}

type SegmentSimulateRequest struct {
	Scenario      Scenario `json:"scenario" validate:"required"`
	TargetSegment string   `json:"target_segment" validate:"required"`
	Cohort        string   `json:"cohort" default:"baseline"`
}

type RankRequest struct {
	ScenarioIDs []string           `json:"scenario_ids" validate:"required,min=1"`
	Objective   string             `json:"objective" default:"revenue-max" validate:"oneof=growth-max revenue-max churn-capped mix-targeted"`
	Constraints RankingConstraints `json:"constraints"`
	Cohort      string             `json:"cohort" default:"baseline"`
}

type CompareRequest struct {
	Scenarios []Scenario `json:"scenarios" validate:"required,min=1,max=20"`
	Cohort    string     `json:"cohort" default:"baseline"`
}
