package server

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	domrepo "PriceLens/internal/domain/repository"
	"PriceLens/internal/handler/api"
	"PriceLens/internal/repository"
	icache "PriceLens/internal/service/cache"
	"PriceLens/internal/services/cohort"
	"PriceLens/internal/services/elasticity"
	"PriceLens/internal/services/statengine"
	"PriceLens/internal/usecase"
	pkgcache "PriceLens/pkg/cache"
	pkgch "PriceLens/pkg/clickhouse"
	"PriceLens/pkg/config"
	xhttp "PriceLens/pkg/http"
	pkgkafka "PriceLens/pkg/kafka"
	applogger "PriceLens/pkg/logger"
	"PriceLens/pkg/queue"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.MetricCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	jobQueue    *queue.RedisQueue
	sink        domrepo.EventSink
	metrics     domrepo.Metrics
	MetricProc  *usecase.MetricProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.MetricCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetEventSink allows DI to inject the simulation audit sink.
func (a *App) SetEventSink(s domrepo.EventSink) { a.sink = s }

// SetMetrics allows DI to inject the Prometheus metrics recorder.
func (a *App) SetMetrics(m domrepo.Metrics) { a.metrics = m }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var (
		httpHandler xhttp.Handler
		plain       *api.ScenariosHandler
	)
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else {
		params := repository.NewFileParamStore(a.cfg.Simulator.ParamsPath)
		params.SetLogger(l)

		var series *repository.CHTierSeries
		if a.chClient != nil {
			series = repository.NewCHTierSeries(a.chClient, a.cfg.ClickHouse.Database+".tier_metrics_weekly")
			series.SetLogger(l)
		}

		adjuster := cohort.NewAdjuster(params)
		adjuster.SetLogger(l)
		resolver := elasticity.NewResolver(params, params, adjuster)
		resolver.SetLogger(l)

		simMetrics := domrepo.Metrics(nopMetrics{})
		if a.metrics != nil {
			simMetrics = a.metrics
		}
		sim := usecase.NewScenarioSimulator(series, params, params, resolver, adjuster, simMetrics)
		sim.SetLogger(l)
		if a.cfg.Simulator.StatsServiceURL != "" {
			sim.SetPredictionProvider(statengine.NewHTTPPredictionProvider(a.cfg))
		}
		if a.sink != nil {
			sim.SetEventSink(a.sink)
		}

		engine := usecase.NewDecisionEngine()
		engine.SetLogger(l)

		var byteCache icache.BytesCache
		if a.cfg.Simulator.Redis.Enabled {
			byteCache = icache.NewRedisCache(icache.RedisConfig{
				Addr:     a.cfg.Simulator.Redis.Addr,
				Password: a.cfg.Simulator.Redis.Password,
				DB:       a.cfg.Simulator.Redis.DB,
			})
		} else {
			byteCache = icache.NewTTLCache()
		}

		plain = api.NewScenariosHandler(sim, engine)
		plain.SetCache(byteCache)
		plain.SetLogger(l)

		se := api.NewScenariosEchoHandler(l, sim, engine)
		se.SetResponseCache(a.buildResponseCache(l))
		httpHandler = se

		// Background compare worker over the redis queue
		if a.cfg.Simulator.Redis.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     a.cfg.Simulator.Redis.Addr,
				Password: a.cfg.Simulator.Redis.Password,
				DB:       a.cfg.Simulator.Redis.DB,
			})
			job := usecase.NewCompareJob(sim)
			job.SetLogger(l)
			a.jobQueue = queue.NewRedisConsumer(l, &queue.QueueConfig{
				Workers:    2,
				RetryLimit: 3,
			}, rdb, []queue.Job{job})
			if err := a.jobQueue.Start(); err != nil {
				l.Warn("compare queue start failed", applogger.Error(err))
				a.jobQueue = nil
			}
		}
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Cached query-parameter surface alongside the JSON API
	if plain != nil {
		e := a.httpServer.Echo()
		e.GET("/v1/scenarios", echo.WrapHandler(plain.Catalog()))
		e.GET("/v1/simulate", echo.WrapHandler(plain.Simulate()))
		e.GET("/v1/rank", echo.WrapHandler(plain.Rank()))
	}

	// Start collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started", applogger.Strings("tiers", a.cfg.Feed.Tiers))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// best-effort logging via stdout
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + feed)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Stop compare queue workers
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("compare queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close metric processor resources (publisher/storage)
	if a.MetricProc != nil {
		a.MetricProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}

// buildResponseCache returns the ranked-response cache: in-process memory
// by default, layered over Redis when the simulator Redis block is enabled.
func (a *App) buildResponseCache(l *applogger.Logger) pkgcache.Service {
	if !a.cfg.Simulator.Redis.Enabled {
		return pkgcache.NewMemoryCache()
	}
	host, portStr, err := net.SplitHostPort(a.cfg.Simulator.Redis.Addr)
	if err != nil {
		l.Warn("invalid redis addr, memory response cache only", applogger.Error(err))
		return pkgcache.NewMemoryCache()
	}
	port, _ := strconv.Atoi(portStr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(a.cfg.Simulator.Redis.Password),
		pkgcache.WithRedisDB(a.cfg.Simulator.Redis.DB),
		pkgcache.WithRedisPrefix("pricelens"),
	)
	if err != nil {
		l.Warn("redis response cache unavailable, memory only", applogger.Error(err))
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// nopMetrics satisfies the domain metrics contract when the Prometheus
// recorder is not wired (handler-only startup path).
type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)    {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordActiveCustomers(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)       {}
