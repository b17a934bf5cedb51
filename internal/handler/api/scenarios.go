package api

import (
	"encoding/json"
	"net/http"
	"time"

	"PriceLens/internal/domain/models"
	icache "PriceLens/internal/service/cache"
	"PriceLens/internal/service/metrics"
	"PriceLens/internal/service/ratelimit"
	"PriceLens/internal/usecase"
	applogger "PriceLens/pkg/logger"
)

// ScenariosHandler serves the catalog and query-parameter simulation
// endpoints over plain net/http.
type ScenariosHandler struct {
	sim    *usecase.ScenarioSimulator
	engine *usecase.DecisionEngine
	cache  icache.BytesCache
	rl     *ratelimit.Limiter
	l      *applogger.Logger
}

func NewScenariosHandler(sim *usecase.ScenarioSimulator, engine *usecase.DecisionEngine) *ScenariosHandler {
	metrics.Register()
	return &ScenariosHandler{sim: sim, engine: engine, rl: ratelimit.New()}
}

func (h *ScenariosHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ScenariosHandler) SetLogger(l *applogger.Logger) { h.l = l }

// Catalog lists the predefined scenarios.
func (h *ScenariosHandler) Catalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "catalog"
		defer func() { metrics.ScenarioLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(models.DefaultScenarios)
		if err != nil {
			metrics.ScenarioErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("scenarios.catalog marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("scenarios.catalog write_error", applogger.Error(err))
		}
	}
}

// Simulate runs a catalog scenario identified by query parameters.
func (h *ScenariosHandler) Simulate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "simulate"
		defer func() { metrics.ScenarioLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		id := r.URL.Query().Get("scenario")
		if id == "" {
			if h.l != nil {
				h.l.Warn("scenarios.simulate missing scenario")
			}
			http.Error(w, "scenario required", http.StatusBadRequest)
			return
		}
		cohort := r.URL.Query().Get("cohort")
		segment := r.URL.Query().Get("segment")
		if !h.rl.Allow(r.RemoteAddr+":simulate", 5, 2) {
			if h.l != nil {
				h.l.Warn("scenarios.simulate rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "simulate:" + id + ":" + segment + ":" + cohort
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("scenarios.simulate cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("scenarios.simulate cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("scenarios.simulate write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("scenarios.simulate cache_miss", applogger.String("key", cacheKey))
			}
		}
		sc, ok := models.FindScenario(models.DefaultScenarios, id)
		if !ok {
			http.Error(w, "unknown scenario", http.StatusNotFound)
			return
		}
		res, err := h.sim.SimulateScenario(r.Context(), *sc, usecase.SimulateOptions{
			Cohort:        cohort,
			TargetSegment: segment,
		})
		if err != nil {
			metrics.ScenarioErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("scenarios.simulate error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("scenarios.simulate marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 60*time.Second); err != nil && h.l != nil {
				h.l.Warn("scenarios.simulate cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("scenarios.simulate write_error", applogger.Error(err))
		}
	}
}

// Rank ranks the whole catalog against an objective from query parameters.
func (h *ScenariosHandler) Rank() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "rank"
		defer func() { metrics.ScenarioLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		objective := r.URL.Query().Get("objective")
		if objective == "" {
			objective = models.ObjectiveRevenueMax
		}
		cohort := r.URL.Query().Get("cohort")
		if !h.rl.Allow(r.RemoteAddr+":rank", 3, 1) {
			if h.l != nil {
				h.l.Warn("scenarios.rank rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "rank:" + objective + ":" + cohort
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("scenarios.rank cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("scenarios.rank cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("scenarios.rank write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("scenarios.rank cache_miss", applogger.String("key", cacheKey))
			}
		}

		results := make([]*models.SimulationResult, 0, len(models.DefaultScenarios))
		for _, sc := range models.DefaultScenarios {
			res, err := h.sim.SimulateScenario(r.Context(), sc, usecase.SimulateOptions{Cohort: cohort})
			if err != nil {
				if h.l != nil {
					h.l.Warn("scenarios.rank scenario_skipped",
						applogger.String("scenario", sc.ID),
						applogger.Error(err))
				}
				continue
			}
			results = append(results, res)
		}
		ranked := h.engine.RankScenarios(results, objective, models.RankingConstraints{})

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(ranked)
		if err != nil {
			if h.l != nil {
				h.l.Error("scenarios.rank marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 60*time.Second); err != nil && h.l != nil {
				h.l.Warn("scenarios.rank cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("scenarios.rank write_error", applogger.Error(err))
		}
	}
}
