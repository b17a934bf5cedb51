package models

// BaselineCohort is the neutral persona every other cohort is measured
// against. Its multiplier set is the identity by definition.
const BaselineCohort = "baseline"

// CohortProfile is a named behavioral persona carrying elasticity
// coefficients and migration propensities. TimeLagDistribution spreads churn
// impact over weekly buckets and must sum to 1.0 (validated at load time,
// not re-checked in the core).
type CohortProfile struct {
	ID                       string    `json:"id"`
	RepeatLossElasticity     float64   `json:"repeat_loss_elasticity"`
	AcquisitionElasticity    float64   `json:"acquisition_elasticity"`
	MigrationAsymmetryFactor float64   `json:"migration_asymmetry_factor"`
	MigrationUpgrade         float64   `json:"migration_upgrade"`
	MigrationDowngrade       float64   `json:"migration_downgrade"`
	TimeLagDistribution      []float64 `json:"time_lag_distribution"`
}

// MultiplierSet is the cohort adjustment applied to elasticities and KPI
// baselines. All fields are 1.0 for the baseline cohort.
type MultiplierSet struct {
	RepeatLoss            float64 `json:"repeat_loss"`
	AOV                   float64 `json:"aov"`
	UnitsPerOrder         float64 `json:"units_per_order"`
	CAC                   float64 `json:"cac"`
	AcquisitionElasticity float64 `json:"acquisition_elasticity"`
	MigrationAsymmetry    float64 `json:"migration_asymmetry"`
}

// Identity is the no-op multiplier set.
func Identity() MultiplierSet {
	return MultiplierSet{
		RepeatLoss:            1,
		AOV:                   1,
		UnitsPerOrder:         1,
		CAC:                   1,
		AcquisitionElasticity: 1,
		MigrationAsymmetry:    1,
	}
}

// KPIRecord is a segment- or tier-level KPI baseline the cohort multipliers
// are applied to. RepeatLossRate is a fraction.
type KPIRecord struct {
	RepeatLossRate float64 `json:"repeat_loss_rate"`
	AOV            float64 `json:"aov"`
	UnitsPerOrder  float64 `json:"units_per_order"`
	CAC            float64 `json:"cac"`
}
