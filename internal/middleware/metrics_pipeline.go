package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, m *models.TierMetric) error
}

// MetricsPipeline sits between the upstream feed and the ingestion
// backend. It validates records, throttles per tier, optionally
// transforms, and buffers when the downstream is unavailable.
type MetricsPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.TierMetric
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-tier last accepted time
	// optional record transform hook
	transform func(*models.TierMetric) *models.TierMetric
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*MetricsPipeline)

// WithMaxRPS sets the max records per second per tier.
func WithMaxRPS(n int) PipelineOption {
	return func(p *MetricsPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *MetricsPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook applied before validation.
func WithTransform(fn func(*models.TierMetric) *models.TierMetric) PipelineOption {
	return func(p *MetricsPipeline) { p.transform = fn }
}

// NewMetricsPipeline creates a new pipeline.
func NewMetricsPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *MetricsPipeline {
	p := &MetricsPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per tier
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.TierMetric, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.TierMetric, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(tier string) { p.metrics.RecordError("pipeline_throttle_" + tier) }
	return p
}

// Start launches background flushing of buffered records.
func (p *MetricsPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case m := <-p.bufCh:
				if m == nil {
					continue
				}
				if err := p.proc.Process(ctx, m); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- m:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *MetricsPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a record downstream,
// buffering on errors.
func (p *MetricsPipeline) Process(ctx context.Context, m *models.TierMetric) error {
	start := time.Now()
	if err := validateMetric(m); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		m = p.transform(m)
		if err := validateMetric(m); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(m.Tier, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(m.Tier)
		}
		return nil
	}

	if err := p.proc.Process(ctx, m); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- m:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateMetric(m *models.TierMetric) error {
	if m == nil {
		return fmt.Errorf("metric nil")
	}
	if m.Tier == "" {
		return fmt.Errorf("tier empty")
	}
	if m.Date.IsZero() {
		return fmt.Errorf("date invalid")
	}
	if m.ActiveCustomers < 0 || m.Revenue < 0 || m.Price < 0 {
		return fmt.Errorf("negative customers/revenue/price")
	}
	if m.RepeatLossRate < 0 || m.RepeatLossRate > 1 {
		return fmt.Errorf("repeat loss rate out of range")
	}
	return nil
}

func (p *MetricsPipeline) allow(tier string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	// simple throttle: at most maxRPS per second per tier
	last := p.lastSeen[tier]
	if last.IsZero() {
		p.lastSeen[tier] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[tier] = now
	return true
}
