package usecase

import (
	"context"

	"PriceLens/internal/domain/models"
	drepo "PriceLens/internal/domain/repository"
	mid "PriceLens/internal/middleware"
)

// MetricCollector drains the upstream KPI feed and hands records to the
// ingestion processor, optionally through the validation pipeline.
type MetricCollector struct {
	stream  drepo.MetricsStream
	proc    *MetricProcessor
	metrics drepo.Metrics
	pipe    *mid.MetricsPipeline
}

// NewMetricCollector creates a new MetricCollector instance.
func NewMetricCollector(stream drepo.MetricsStream, proc *MetricProcessor, metrics drepo.Metrics, pipe *mid.MetricsPipeline) *MetricCollector {
	return &MetricCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the upstream feed is connected.
func (c *MetricCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *MetricCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	mCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, mCh, errCh)
	return nil
}

func (c *MetricCollector) consume(ctx context.Context, mCh <-chan *models.TierMetric, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case m := <-mCh:
			if m == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, m)
			} else {
				_ = c.proc.Process(ctx, m)
			}
			c.metrics.RecordActiveCustomers(m.Tier, m.ActiveCustomers)
		}
	}
}

func (c *MetricCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying MetricProcessor for lifecycle management.
func (c *MetricCollector) Processor() *MetricProcessor { return c.proc }

// Shutdown stops the pipeline and closes the feed.
func (c *MetricCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
