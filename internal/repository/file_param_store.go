package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	applogger "PriceLens/pkg/logger"
)

// paramDocument is the on-disk shape of the pricing parameter bundle. The
// analytics team regenerates it offline; the service only ever reads it.
type paramDocument struct {
	Tiers    map[string]models.TierParams      `json:"tiers"`
	Segments map[string][]models.Segment       `json:"segments"`
	Cohorts  map[string]models.CohortProfile   `json:"cohorts"`
}

// FileParamStore serves elasticity parameters, segment tables and cohort
// profiles from a single JSON document, loaded once and memoized. It
// implements ParamStore, SegmentStore and CohortStore.
type FileParamStore struct {
	path string
	l    *applogger.Logger

	once    sync.Once
	doc     *paramDocument
	loadErr error
}

var (
	_ domrepo.ParamStore   = (*FileParamStore)(nil)
	_ domrepo.SegmentStore = (*FileParamStore)(nil)
	_ domrepo.CohortStore  = (*FileParamStore)(nil)
)

func NewFileParamStore(path string) *FileParamStore {
	return &FileParamStore{path: path}
}

// SetLogger injects a structured logger.
func (s *FileParamStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *FileParamStore) load() (*paramDocument, error) {
	s.once.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("read params %s: %w", s.path, err)
			return
		}
		var doc paramDocument
		if err := json.Unmarshal(b, &doc); err != nil {
			s.loadErr = fmt.Errorf("parse params %s: %w", s.path, err)
			return
		}
		if err := validateDocument(&doc); err != nil {
			s.loadErr = fmt.Errorf("validate params %s: %w", s.path, err)
			return
		}
		s.doc = &doc
		if s.l != nil {
			s.l.Info("pricing parameters loaded",
				applogger.String("path", s.path),
				applogger.Int("tiers", len(doc.Tiers)),
				applogger.Int("cohorts", len(doc.Cohorts)),
			)
		}
	})
	if s.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", domrepo.ErrParamsNotLoaded, s.loadErr)
	}
	return s.doc, nil
}

func validateDocument(doc *paramDocument) error {
	if len(doc.Tiers) == 0 {
		return fmt.Errorf("no tiers defined")
	}
	for tier, p := range doc.Tiers {
		if p.PriceRange.Min > p.PriceRange.Max {
			return fmt.Errorf("tier %s: price range min > max", tier)
		}
	}
	for id, c := range doc.Cohorts {
		if len(c.TimeLagDistribution) == 0 {
			continue
		}
		var sum float64
		for _, w := range c.TimeLagDistribution {
			sum += w
		}
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("cohort %s: time lag distribution sums to %.3f", id, sum)
		}
	}
	return nil
}

func (s *FileParamStore) TierParams(ctx context.Context, tier string) (models.TierParams, error) {
	doc, err := s.load()
	if err != nil {
		return models.TierParams{}, err
	}
	p, ok := doc.Tiers[tier]
	if !ok {
		return models.TierParams{}, fmt.Errorf("tier %q: %w", tier, domrepo.ErrTierNotFound)
	}
	return p, nil
}

func (s *FileParamStore) SegmentsForTier(ctx context.Context, tier string) ([]models.Segment, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	segs := doc.Segments[tier]
	out := make([]models.Segment, len(segs))
	copy(out, segs)
	return out, nil
}

func (s *FileParamStore) FilterSegments(ctx context.Context, f models.SegmentFilter) ([]models.Segment, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []models.Segment
	for tier, segs := range doc.Segments {
		if f.Tier != "" && f.Tier != tier {
			continue
		}
		for _, seg := range segs {
			if f.Matches(seg) {
				out = append(out, seg)
			}
		}
	}
	return out, nil
}

func (s *FileParamStore) Segment(ctx context.Context, tier, compositeKey string) (models.Segment, error) {
	doc, err := s.load()
	if err != nil {
		return models.Segment{}, err
	}
	for _, seg := range doc.Segments[tier] {
		if seg.CompositeKey == compositeKey {
			return seg, nil
		}
	}
	return models.Segment{}, fmt.Errorf("tier %q segment %q: %w", tier, compositeKey, domrepo.ErrSegmentNotFound)
}

// AggregateKPIs folds segment KPI records into a customer-weighted tier
// record. Zero total population yields a zero record.
func (s *FileParamStore) AggregateKPIs(segments []models.Segment) models.KPIRecord {
	var total float64
	for _, seg := range segments {
		total += seg.Customers
	}
	if total == 0 {
		return models.KPIRecord{}
	}
	var out models.KPIRecord
	for _, seg := range segments {
		w := seg.Customers / total
		out.RepeatLossRate += seg.KPIs.RepeatLossRate * w
		out.AOV += seg.KPIs.AOV * w
		out.UnitsPerOrder += seg.KPIs.UnitsPerOrder * w
		out.CAC += seg.KPIs.CAC * w
	}
	return out
}

func (s *FileParamStore) Cohort(ctx context.Context, id string) (models.CohortProfile, error) {
	doc, err := s.load()
	if err != nil {
		return models.CohortProfile{}, err
	}
	if id == "" || id == models.BaselineCohort {
		return s.Baseline(ctx)
	}
	c, ok := doc.Cohorts[id]
	if !ok {
		return models.CohortProfile{}, fmt.Errorf("cohort %q not found", id)
	}
	return c, nil
}

func (s *FileParamStore) Baseline(ctx context.Context) (models.CohortProfile, error) {
	doc, err := s.load()
	if err != nil {
		return models.CohortProfile{}, err
	}
	if c, ok := doc.Cohorts[models.BaselineCohort]; ok {
		return c, nil
	}
	// The baseline persona is implicit when the document omits it.
	return models.CohortProfile{ID: models.BaselineCohort, MigrationAsymmetryFactor: 1}, nil
}
