package cohort

import (
	"context"
	"math"
	"testing"

	"PriceLens/internal/domain/models"
)

type fakeCohorts struct {
	cohorts map[string]models.CohortProfile
}

func (f *fakeCohorts) Cohort(_ context.Context, id string) (models.CohortProfile, error) {
	if c, ok := f.cohorts[id]; ok {
		return c, nil
	}
	return models.CohortProfile{}, errNotFound
}

func (f *fakeCohorts) Baseline(context.Context) (models.CohortProfile, error) {
	return f.cohorts[models.BaselineCohort], nil
}

var errNotFound = context.DeadlineExceeded // any sentinel will do for the fake

func TestMultipliersBaselineShortCircuit(t *testing.T) {
	// The store would blow the ratios up (zero baseline fields); the
	// short-circuit must prevent it from even being consulted.
	a := NewAdjuster(&fakeCohorts{cohorts: map[string]models.CohortProfile{
		models.BaselineCohort: {},
	}})
	for _, id := range []string{"", models.BaselineCohort} {
		m, err := a.Multipliers(context.Background(), id)
		if err != nil {
			t.Fatalf("cohort %q: %v", id, err)
		}
		if m != models.Identity() {
			t.Fatalf("cohort %q: expected identity, got %+v", id, m)
		}
	}
}

func TestMultipliersUnknownCohortDegrades(t *testing.T) {
	a := NewAdjuster(&fakeCohorts{cohorts: map[string]models.CohortProfile{}})
	m, err := a.Multipliers(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("unknown cohort must degrade, not fail: %v", err)
	}
	if m != models.Identity() {
		t.Fatalf("expected identity for unknown cohort, got %+v", m)
	}
}

func TestMultipliersRatiosAndProxies(t *testing.T) {
	a := NewAdjuster(&fakeCohorts{cohorts: map[string]models.CohortProfile{
		models.BaselineCohort: {
			RepeatLossElasticity:     1.0,
			AcquisitionElasticity:    -2.0,
			MigrationAsymmetryFactor: 1.0,
		},
		"price_hawk": {
			RepeatLossElasticity:     1.5,
			AcquisitionElasticity:    -3.0,
			MigrationAsymmetryFactor: 0.8,
			MigrationUpgrade:         0.5,
			MigrationDowngrade:       0.4,
		},
	}})

	m, err := a.Multipliers(context.Background(), "price_hawk")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.RepeatLoss-1.5) > 1e-12 {
		t.Fatalf("repeat loss ratio = %f, want 1.5", m.RepeatLoss)
	}
	if math.Abs(m.AcquisitionElasticity-1.5) > 1e-12 {
		t.Fatalf("acquisition ratio = %f, want 1.5", m.AcquisitionElasticity)
	}
	if math.Abs(m.MigrationAsymmetry-0.8) > 1e-12 {
		t.Fatalf("asymmetry ratio = %f, want 0.8", m.MigrationAsymmetry)
	}
	// Proxy formulas, not ratios.
	if math.Abs(m.AOV-(0.8+0.5*0.3)) > 1e-12 {
		t.Fatalf("aov proxy = %f", m.AOV)
	}
	if math.Abs(m.UnitsPerOrder-(0.9+0.5*0.2)) > 1e-12 {
		t.Fatalf("units proxy = %f", m.UnitsPerOrder)
	}
	if math.Abs(m.CAC-(0.7+0.4*0.5)) > 1e-12 {
		t.Fatalf("cac proxy = %f", m.CAC)
	}
}

func TestMultipliersZeroBaselineField(t *testing.T) {
	a := NewAdjuster(&fakeCohorts{cohorts: map[string]models.CohortProfile{
		models.BaselineCohort: {RepeatLossElasticity: 0, AcquisitionElasticity: -2.0, MigrationAsymmetryFactor: 1},
		"hawk":                {RepeatLossElasticity: 1.5, AcquisitionElasticity: -2.0, MigrationAsymmetryFactor: 1},
	}})
	m, err := a.Multipliers(context.Background(), "hawk")
	if err != nil {
		t.Fatal(err)
	}
	if m.RepeatLoss != 1 {
		t.Fatalf("zero baseline field must yield neutral ratio, got %f", m.RepeatLoss)
	}
}

func TestApplyClamps(t *testing.T) {
	a := NewAdjuster(nil)
	k := models.KPIRecord{RepeatLossRate: 0.6, AOV: 30, UnitsPerOrder: 2, CAC: 12}
	m := models.MultiplierSet{RepeatLoss: 3, AOV: 1.1, UnitsPerOrder: 1, CAC: 0.5}
	out := a.Apply(k, m)
	if out.RepeatLossRate != 1 {
		t.Fatalf("rate must clamp to 1, got %f", out.RepeatLossRate)
	}
	if math.Abs(out.AOV-33) > 1e-12 || math.Abs(out.CAC-6) > 1e-12 {
		t.Fatalf("unexpected magnitudes %+v", out)
	}
}
