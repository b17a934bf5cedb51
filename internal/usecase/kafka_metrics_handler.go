package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	pkgkafka "PriceLens/pkg/kafka"
)

// KafkaMetricsHandler consumes weekly KPI records from the warehouse topic
// and writes them to storage.
type KafkaMetricsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaMetricsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaMetricsHandler {
	return &KafkaMetricsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaMetricsHandler) Topic() string { return h.topic }

// incoming message schema: {tier, date, active_customers, new_customers,
// repeat_loss_rate, revenue, aov, price}; date is a unix timestamp.
func (h *KafkaMetricsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Tier            string  `json:"tier"`
		Date            int64   `json:"date"`
		ActiveCustomers float64 `json:"active_customers"`
		NewCustomers    float64 `json:"new_customers"`
		RepeatLossRate  float64 `json:"repeat_loss_rate"`
		Revenue         float64 `json:"revenue"`
		AOV             float64 `json:"aov"`
		Price           float64 `json:"price"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Date > 1e11 { // ms
		m.Date = m.Date / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.Date, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.TierMetric{
		Tier:            m.Tier,
		Date:            time.Unix(m.Date, 0).UTC(),
		ActiveCustomers: m.ActiveCustomers,
		NewCustomers:    m.NewCustomers,
		RepeatLossRate:  m.RepeatLossRate,
		Revenue:         m.Revenue,
		AOV:             m.AOV,
		Price:           m.Price,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.Tier)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaMetricsHandler)(nil)
