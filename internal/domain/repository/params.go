package repository

import (
	"context"
	"errors"

	"PriceLens/internal/domain/models"
)

var (
	// ErrParamsNotLoaded indicates the elasticity/segment/cohort parameter
	// document has not been loaded yet; callers must not compute on partial
	// data.
	ErrParamsNotLoaded = errors.New("pricing parameters not loaded")

	// ErrSegmentNotFound indicates an unknown composite segment key.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrTierNotFound indicates a tier absent from the parameter store.
	ErrTierNotFound = errors.New("tier not found in parameter store")
)

// ParamStore exposes the elasticity parameter document: per-tier base
// elasticities, price ranges and segment coefficient tables.
type ParamStore interface {
	TierParams(ctx context.Context, tier string) (models.TierParams, error)
}

// SegmentStore is the segmentation engine contract. Its absence is a
// recoverable degraded mode (tier-level-only analysis), not an error.
type SegmentStore interface {
	SegmentsForTier(ctx context.Context, tier string) ([]models.Segment, error)
	FilterSegments(ctx context.Context, f models.SegmentFilter) ([]models.Segment, error)
	Segment(ctx context.Context, tier, compositeKey string) (models.Segment, error)
	AggregateKPIs(segments []models.Segment) models.KPIRecord
}

// CohortStore exposes behavioral persona profiles.
type CohortStore interface {
	Cohort(ctx context.Context, id string) (models.CohortProfile, error)
	Baseline(ctx context.Context) (models.CohortProfile, error)
}
