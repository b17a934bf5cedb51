package usecase

import (
	"context"
	"testing"

	"PriceLens/internal/domain/models"
)

func TestCompareScenariosIsolatesFailures(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)

	good := priceScenario("ad-supported-cut", models.TierAdSupported, 24, 22)
	bad := priceScenario("unknown-tier", "mystery", 10, 11)

	entries := sim.CompareScenarios(context.Background(), []models.Scenario{good, bad}, SimulateOptions{})
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	if entries[0].ScenarioID != "ad-supported-cut" {
		t.Fatalf("entry 0 scenario = %q, want ad-supported-cut", entries[0].ScenarioID)
	}
	if entries[0].Result == nil {
		t.Fatal("healthy scenario lost its result")
	}
	if entries[0].Error != "" {
		t.Fatalf("healthy scenario carries error %q", entries[0].Error)
	}

	if entries[1].ScenarioID != "unknown-tier" {
		t.Fatalf("entry 1 scenario = %q, want unknown-tier", entries[1].ScenarioID)
	}
	if entries[1].Result != nil {
		t.Fatal("failed scenario should not carry a result")
	}
	if entries[1].Error == "" {
		t.Fatal("failed scenario should carry an inline error")
	}
}

func TestCompareScenariosAllFailures(t *testing.T) {
	sim := newTestSimulator(testSeries(), nil)

	scenarios := []models.Scenario{
		priceScenario("ghost-a", "mystery", 10, 11),
		priceScenario("ghost-b", "phantom", 10, 12),
	}
	entries := sim.CompareScenarios(context.Background(), scenarios, SimulateOptions{})
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for i, e := range entries {
		if e.Error == "" || e.Result != nil {
			t.Fatalf("entry %d: error = %q result = %v, want inline error only", i, e.Error, e.Result)
		}
	}
}
