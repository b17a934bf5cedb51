package usecase

import (
	"context"
	"fmt"

	"PriceLens/internal/domain/models"
	applogger "PriceLens/pkg/logger"
	"PriceLens/pkg/queue"
)

// CompareJobType is the queue message type for background comparisons.
const CompareJobType = "scenario.compare"

// CompareJobPayload is the queued form of a comparison request.
type CompareJobPayload struct {
	ScenarioIDs []string `json:"scenario_ids"`
	Cohort      string   `json:"cohort,omitempty"`
	Objective   string   `json:"objective,omitempty"`
}

// CompareScenarios simulates each scenario independently and collects the
// outcomes side by side. One failing scenario does not abort the batch;
// its entry carries the error text instead of a result.
func (s *ScenarioSimulator) CompareScenarios(ctx context.Context, scenarios []models.Scenario, opts SimulateOptions) []models.CompareEntry {
	entries := make([]models.CompareEntry, 0, len(scenarios))
	for _, sc := range scenarios {
		entry := models.CompareEntry{ScenarioID: sc.ID}
		res, err := s.SimulateScenario(ctx, sc, opts)
		if err != nil {
			entry.Error = err.Error()
			if s.l != nil {
				s.l.Warn("comparison entry failed",
					applogger.String("scenario", sc.ID),
					applogger.Error(err))
			}
		} else {
			entry.Result = res
		}
		entries = append(entries, entry)
	}
	return entries
}

// CompareJob runs scenario comparisons off the request path through the
// queue worker pool, warming the result cache for subsequent reads.
type CompareJob struct {
	sim *ScenarioSimulator
	l   *applogger.Logger
}

func NewCompareJob(sim *ScenarioSimulator) *CompareJob {
	return &CompareJob{sim: sim}
}

var _ queue.Job = (*CompareJob)(nil)

func (j *CompareJob) Name() string { return "scenario-compare" }

func (j *CompareJob) Type() string { return CompareJobType }

// SetLogger injects a structured logger.
func (j *CompareJob) SetLogger(l *applogger.Logger) { j.l = l }

func (j *CompareJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CompareJobPayload](payload)
	if err != nil {
		return fmt.Errorf("failed to parse compare payload: %w", err)
	}
	if len(p.ScenarioIDs) == 0 {
		return fmt.Errorf("compare job requires at least one scenario id")
	}

	scenarios := make([]models.Scenario, 0, len(p.ScenarioIDs))
	for _, id := range p.ScenarioIDs {
		sc, ok := models.FindScenario(models.DefaultScenarios, id)
		if !ok {
			return fmt.Errorf("unknown scenario %q", id)
		}
		scenarios = append(scenarios, *sc)
	}

	entries := j.sim.CompareScenarios(ctx, scenarios, SimulateOptions{Cohort: p.Cohort})
	failed := 0
	for _, e := range entries {
		if e.Error != "" {
			failed++
		}
	}
	if j.l != nil {
		j.l.Info("background comparison complete",
			applogger.Int("scenarios", len(entries)),
			applogger.Int("failed", failed))
	}
	return nil
}
