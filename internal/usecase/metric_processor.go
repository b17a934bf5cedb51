package usecase

import (
	"context"
	"fmt"
	"time"

	"PriceLens/internal/domain/models"
	drepo "PriceLens/internal/domain/repository"
)

// MetricProcessor routes weekly KPI records to the configured ingestion
// backend: the kafka bus for the warehouse pipeline or clickhouse
// directly.
type MetricProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewMetricProcessor creates a new MetricProcessor instance.
func NewMetricProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *MetricProcessor {
	return &MetricProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single record to the configured backend.
func (p *MetricProcessor) Process(ctx context.Context, m *models.TierMetric) error {
	if m == nil {
		return fmt.Errorf("metric is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, m)
	case "clickhouse":
		err = p.store.Store(ctx, m)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process metric: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, m.Tier)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple records in a batch.
func (p *MetricProcessor) ProcessBatch(ctx context.Context, records []*models.TierMetric) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, records)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, records)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, m := range records {
		p.metrics.RecordMessageSent(p.backend, m.Tier)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *MetricProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
