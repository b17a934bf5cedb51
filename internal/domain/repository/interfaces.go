package repository

import (
	"context"
	"time"

	"PriceLens/internal/domain/models"
)

// MetricsStream is the upstream feed of weekly tier KPI records pushed by
// the data platform.
type MetricsStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TierMetric, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, m *models.TierMetric) error
	PublishBatch(ctx context.Context, metrics []*models.TierMetric) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, m *models.TierMetric) error
	StoreBatch(ctx context.Context, metrics []*models.TierMetric) error
	Query(ctx context.Context, tier string, from, to time.Time, limit int) ([]*models.TierMetric, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// EventSink receives completed simulation results for downstream consumers
// (audit trail, export pipeline). A sink failure never fails a simulation.
type EventSink interface {
	PublishResult(ctx context.Context, r *models.SimulationResult) error
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, tier string)
	RecordError(kind string)
	RecordActiveCustomers(tier string, count float64)
	RecordLatency(op string, seconds float64)
}
