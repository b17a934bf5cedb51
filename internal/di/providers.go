package di

import (
	"context"
	"fmt"
	"time"

	"PriceLens/internal/domain/repository"
	mid "PriceLens/internal/middleware"
	internalrepo "PriceLens/internal/repository"
	"PriceLens/internal/service/metricsfeed"
	"PriceLens/internal/usecase"
	pkgch "PriceLens/pkg/clickhouse"
	"PriceLens/pkg/config"
	pkgkafka "PriceLens/pkg/kafka"
	"PriceLens/pkg/metrics"
	"PriceLens/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS pricelens",
		"CREATE TABLE IF NOT EXISTS pricelens.tier_metrics_weekly (tier String, date DateTime, active_customers Float64, new_customers Float64, repeat_loss_rate Float64, revenue Float64, aov Float64, price Float64, event_id String) ENGINE=ReplacingMergeTree ORDER BY (tier, date)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMetricStorage creates ClickHouse storage repository.
func ProvideMetricStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".tier_metrics_weekly")
}

// ProvideMetricPublisher creates Kafka publisher repository.
func ProvideMetricPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideEventSink creates the Kafka simulation-audit sink.
func ProvideEventSink(producer *pkgkafka.Producer, cfg *config.Config) repository.EventSink {
	topic := cfg.Kafka.ResultsTopic
	if topic == "" {
		topic = "pricelens.simulation_results"
	}
	return internalrepo.NewKafkaEventSink(producer, topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaMetricsHandler registers the handler for the metrics topic.
func ProvideKafkaMetricsHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaMetricsHandler {
	return usecase.NewKafkaMetricsHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideMetricsStream creates the WebSocket KPI feed.
func ProvideMetricsStream(cfg *config.Config) repository.MetricsStream {
	return metricsfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Tiers,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideMetricProcessor creates the ingestion processor use case.
func ProvideMetricProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.MetricProcessor {
	return usecase.NewMetricProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideMetricCollector creates the feed collector use case.
func ProvideMetricCollector(
	stream repository.MetricsStream,
	processor *usecase.MetricProcessor,
	metrics repository.Metrics,
) *usecase.MetricCollector {
	// Build middleware pipeline between the feed and the backend
	pipe := mid.NewMetricsPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewMetricCollector(stream, processor, metrics, pipe)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.MetricCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaMetricsHandler,
	chClient *pkgch.Client,
	sink repository.EventSink,
	metrics repository.Metrics,
) *server.App {
	// Attach hook to consumer: example NoopHook for now; can be replaced via config
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.SetEventSink(sink)
	app.SetMetrics(metrics)
	// attach metric processor to app for closing resources via collector
	if collector != nil {
		app.MetricProc = collector.Processor()
	}
	return app
}
