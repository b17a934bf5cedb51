package elasticity

import (
	"context"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	domsvc "PriceLens/internal/domain/service"
	applogger "PriceLens/pkg/logger"
)

// Resolver resolves a demand-elasticity coefficient for a
// (tier, segment, axis, cohort) combination by trying an ordered list of
// named sources. The chain makes the fallback order a first-class artifact:
// segment lookup, then tier-level base, then the generic constant. Resolve
// never fails; a lookup problem at one level degrades to the next.
type Resolver struct {
	sources  []domsvc.ElasticitySource
	adjuster domsvc.CohortAdjuster
	l        *applogger.Logger
}

func NewResolver(params domrepo.ParamStore, segments domrepo.SegmentStore, adjuster domsvc.CohortAdjuster) *Resolver {
	return &Resolver{
		sources: []domsvc.ElasticitySource{
			&segmentSource{segments: segments, params: params},
			&tierBaseSource{params: params},
			genericSource{},
		},
		adjuster: adjuster,
	}
}

// SetLogger injects a structured logger.
func (r *Resolver) SetLogger(l *applogger.Logger) { r.l = l }

// Resolve walks the source chain, first success wins. The terminal generic
// source always succeeds, so the return value is always usable.
func (r *Resolver) Resolve(ctx context.Context, tier, compositeKey, axis, cohortID string) float64 {
	mult := models.Identity()
	if r.adjuster != nil {
		if m, err := r.adjuster.Multipliers(ctx, cohortID); err == nil {
			mult = m
		} else if r.l != nil {
			r.l.Warn("cohort multipliers unavailable, using identity",
				applogger.String("cohort", cohortID), applogger.Error(err))
		}
	}

	for _, src := range r.sources {
		if v, ok := r.try(src, tier, compositeKey, axis, mult); ok {
			if r.l != nil && src.Name() != "segment" {
				r.l.Debug("elasticity fallback",
					applogger.String("source", src.Name()),
					applogger.String("tier", tier),
					applogger.String("axis", axis))
			}
			return v
		}
	}
	// Unreachable: genericSource always resolves. Kept as a hard floor.
	return genericBase
}

// try shields the chain from panics in a misbehaving source; malformed data
// degrades to the next source instead of surfacing.
func (r *Resolver) try(src domsvc.ElasticitySource, tier, key, axis string, mult models.MultiplierSet) (v float64, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.l != nil {
				r.l.Warn("elasticity source panic, degrading",
					applogger.String("source", src.Name()),
					applogger.Any("panic", rec))
			}
			v, ok = 0, false
		}
	}()
	return src.TryResolve(tier, key, axis, mult)
}
