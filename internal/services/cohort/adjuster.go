package cohort

import (
	"context"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	domsvc "PriceLens/internal/domain/service"
	applogger "PriceLens/pkg/logger"
)

// Adjuster computes cohort multiplier sets against the baseline persona and
// applies them to KPI baselines.
type Adjuster struct {
	store domrepo.CohortStore
	l     *applogger.Logger
}

func NewAdjuster(store domrepo.CohortStore) *Adjuster {
	return &Adjuster{store: store}
}

// SetLogger injects a structured logger.
func (a *Adjuster) SetLogger(l *applogger.Logger) { a.l = l }

// Multipliers returns the multiplier set for the active cohort. The
// baseline cohort short-circuits to the identity so a zero baseline
// coefficient can never poison the ratios. An unknown cohort degrades to
// identity as well; that is a fallback condition, not an error.
func (a *Adjuster) Multipliers(ctx context.Context, cohortID string) (models.MultiplierSet, error) {
	if cohortID == "" || cohortID == models.BaselineCohort {
		return models.Identity(), nil
	}

	c, err := a.store.Cohort(ctx, cohortID)
	if err != nil {
		if a.l != nil {
			a.l.Warn("cohort lookup miss, using identity",
				applogger.String("cohort", cohortID), applogger.Error(err))
		}
		return models.Identity(), nil
	}
	base, err := a.store.Baseline(ctx)
	if err != nil {
		if a.l != nil {
			a.l.Warn("baseline cohort missing, using identity", applogger.Error(err))
		}
		return models.Identity(), nil
	}

	// aov, units_per_order and cac are not ratios against the baseline:
	// they are derived proxy formulas from the cohort's migration fields.
	// The constants are calibrated model policy; do not normalize them into
	// the ratio scheme.
	return models.MultiplierSet{
		RepeatLoss:            ratio(c.RepeatLossElasticity, base.RepeatLossElasticity),
		AcquisitionElasticity: ratio(c.AcquisitionElasticity, base.AcquisitionElasticity),
		MigrationAsymmetry:    ratio(c.MigrationAsymmetryFactor, base.MigrationAsymmetryFactor),
		AOV:                   0.8 + c.MigrationUpgrade*0.3,
		UnitsPerOrder:         0.9 + c.MigrationUpgrade*0.2,
		CAC:                   0.7 + c.MigrationDowngrade*0.5,
	}, nil
}

// Apply scales a KPI record by a multiplier set. Rate fields are clamped to
// [0,1]; magnitude fields are floored at zero.
func (a *Adjuster) Apply(k models.KPIRecord, m models.MultiplierSet) models.KPIRecord {
	out := models.KPIRecord{
		RepeatLossRate: k.RepeatLossRate * m.RepeatLoss,
		AOV:            k.AOV * m.AOV,
		UnitsPerOrder:  k.UnitsPerOrder * m.UnitsPerOrder,
		CAC:            k.CAC * m.CAC,
	}
	if out.RepeatLossRate < 0 {
		out.RepeatLossRate = 0
	}
	if out.RepeatLossRate > 1 {
		out.RepeatLossRate = 1
	}
	if out.AOV < 0 {
		out.AOV = 0
	}
	if out.UnitsPerOrder < 0 {
		out.UnitsPerOrder = 0
	}
	if out.CAC < 0 {
		out.CAC = 0
	}
	return out
}

func ratio(v, base float64) float64 {
	if base == 0 {
		return 1
	}
	return v / base
}

var _ domsvc.CohortAdjuster = (*Adjuster)(nil)
