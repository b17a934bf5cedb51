package metricsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"PriceLens/internal/domain/models"
	drepo "PriceLens/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MetricsStream backed by the data platform's
// WebSocket push feed of weekly tier KPI records.
type Client struct {
	apiKey         string
	websocketURL   string
	tiers          []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new feed-backed MetricsStream.
func New(apiKey, websocketURL string, tiers []string, reconnectDelay, pingInterval time.Duration) drepo.MetricsStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		tiers:          tiers,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("metrics feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("metricsfeed: connected")
	return nil
}

// Subscribe subscribes to the configured tiers.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("metrics feed not connected")
	}
	for _, t := range c.tiers {
		msg := map[string]string{"type": "subscribe", "tier": t}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
		log.Printf("metricsfeed: subscribed %s", t)
	}
	return nil
}

type feedRecord struct {
	Tier            string  `json:"tier"`
	Date            int64   `json:"date"` // unix seconds or ms
	ActiveCustomers float64 `json:"active_customers"`
	NewCustomers    float64 `json:"new_customers"`
	RepeatLossRate  float64 `json:"repeat_loss_rate"`
	Revenue         float64 `json:"revenue"`
	AOV             float64 `json:"aov"`
	Price           float64 `json:"price"`
}

type feedMessage struct {
	Type string       `json:"type"`
	Data []feedRecord `json:"data"`
}

// Read streams TierMetric events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.TierMetric, <-chan error) {
	records := make(chan *models.TierMetric, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(records)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("metrics feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("metrics feed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-data frames
					continue
				}
				if m.Type != "metrics" {
					continue
				}
				for _, d := range m.Data {
					sec := d.Date
					if sec > 1e11 { // ms
						sec /= 1000
					}
					rec := &models.TierMetric{
						Tier:            d.Tier,
						Date:            time.Unix(sec, 0).UTC(),
						ActiveCustomers: d.ActiveCustomers,
						NewCustomers:    d.NewCustomers,
						RepeatLossRate:  d.RepeatLossRate,
						Revenue:         d.Revenue,
						AOV:             d.AOV,
						Price:           d.Price,
					}
					select {
					case records <- rec:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return records, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
