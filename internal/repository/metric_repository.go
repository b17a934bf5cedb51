package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/domain/repository"
	pkgkafka "PriceLens/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, m *models.TierMetric) error {
	q := fmt.Sprintf("INSERT INTO %s (tier, date, active_customers, new_customers, repeat_loss_rate, revenue, aov, price, event_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	// Idempotency key: one record per tier per week
	eventID := fmt.Sprintf("%s-%d", m.Tier, m.Date.Unix())
	_, err := s.db.ExecContext(ctx, q,
		m.Tier,
		m.Date,
		m.ActiveCustomers,
		m.NewCustomers,
		m.RepeatLossRate,
		m.Revenue,
		m.AOV,
		m.Price,
		eventID,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, records []*models.TierMetric) error {
	if len(records) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips; chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, m := range records[start:end] {
			if m == nil || m.Tier == "" || m.Date.IsZero() {
				continue
			}
			eventID := fmt.Sprintf("%s-%d", m.Tier, m.Date.Unix())
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				m.Tier,
				m.Date,
				m.ActiveCustomers,
				m.NewCustomers,
				m.RepeatLossRate,
				m.Revenue,
				m.AOV,
				m.Price,
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (tier, date, active_customers, new_customers, repeat_loss_rate, revenue, aov, price, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, tier string, from, to time.Time, limit int) ([]*models.TierMetric, error) {
	q := fmt.Sprintf("SELECT tier, date, active_customers, new_customers, repeat_loss_rate, revenue, aov, price FROM %s WHERE tier = ? AND date >= ? AND date <= ? ORDER BY date DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, tier, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TierMetric
	for rows.Next() {
		var m models.TierMetric
		if err := rows.Scan(&m.Tier, &m.Date, &m.ActiveCustomers, &m.NewCustomers, &m.RepeatLossRate, &m.Revenue, &m.AOV, &m.Price); err != nil {
			return nil, err
		}
		records = append(records, &m)
	}
	return records, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func metricPayload(m *models.TierMetric) map[string]interface{} {
	return map[string]interface{}{
		"tier":             m.Tier,
		"date":             m.Date.Unix(),
		"active_customers": m.ActiveCustomers,
		"new_customers":    m.NewCustomers,
		"repeat_loss_rate": m.RepeatLossRate,
		"revenue":          m.Revenue,
		"aov":              m.AOV,
		"price":            m.Price,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, m *models.TierMetric) error {
	return p.producer.Publish(ctx, p.topic, []byte(m.Tier), metricPayload(m))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, records []*models.TierMetric) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, m := range records {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(m.Tier),
			Value: metricPayload(m),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaEventSink publishes completed simulation results to the audit
// topic. Consumers downstream build the export trail; a sink failure never
// fails a simulation.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) repository.EventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) PublishResult(ctx context.Context, r *models.SimulationResult) error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}
	return s.producer.Publish(ctx, s.topic, []byte(r.ScenarioID), r)
}

func (s *KafkaEventSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
