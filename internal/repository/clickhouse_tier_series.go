package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PriceLens/internal/domain/models"
	domrepo "PriceLens/internal/domain/repository"
	pkgch "PriceLens/pkg/clickhouse"
	applogger "PriceLens/pkg/logger"
)

// CHTierSeries implements TierSeriesStore backed by ClickHouse.
type CHTierSeries struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHTierSeries(ch *pkgch.Client, table string) *CHTierSeries {
	if table == "" {
		table = "pricelens.tier_metrics_weekly"
	}
	return &CHTierSeries{db: ch.DB(), table: table}
}

var _ domrepo.TierSeriesStore = (*CHTierSeries)(nil)

// SetLogger injects a structured logger.
func (s *CHTierSeries) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHTierSeries) GetSeries(ctx context.Context, tier string, from, to time.Time) ([]models.TierMetric, error) {
	start := time.Now()
	const qtpl = `
		SELECT tier, date, active_customers, new_customers, repeat_loss_rate, revenue, aov, price
		FROM %s
		WHERE tier = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, tier, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_series query error",
				applogger.String("table", s.table),
				applogger.String("tier", tier),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get tier series: %w", err)
	}
	defer rows.Close()

	out := make([]models.TierMetric, 0, 64)
	for rows.Next() {
		var m models.TierMetric
		if err := rows.Scan(&m.Tier, &m.Date, &m.ActiveCustomers, &m.NewCustomers, &m.RepeatLossRate, &m.Revenue, &m.AOV, &m.Price); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse get_series scan error",
					applogger.String("table", s.table),
					applogger.String("tier", tier),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan tier metric: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_series ok",
			applogger.String("table", s.table),
			applogger.String("tier", tier),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHTierSeries) GetLatest(ctx context.Context, tier string) (models.TierMetric, error) {
	const qtpl = `
		SELECT tier, date, active_customers, new_customers, repeat_loss_rate, revenue, aov, price
		FROM %s
		WHERE tier = ?
		ORDER BY date DESC
		LIMIT 1
	`
	q := fmt.Sprintf(qtpl, s.table)
	var m models.TierMetric
	row := s.db.QueryRowContext(ctx, q, tier)
	err := row.Scan(&m.Tier, &m.Date, &m.ActiveCustomers, &m.NewCustomers, &m.RepeatLossRate, &m.Revenue, &m.AOV, &m.Price)
	if err == sql.ErrNoRows {
		return models.TierMetric{}, fmt.Errorf("tier %s: %w", tier, domrepo.ErrNoHistory)
	}
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_latest error",
				applogger.String("table", s.table),
				applogger.String("tier", tier),
				applogger.Error(err),
			)
		}
		return models.TierMetric{}, fmt.Errorf("get latest metric: %w", err)
	}
	return m, nil
}

func (s *CHTierSeries) Tiers(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT tier FROM %s ORDER BY tier", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}
