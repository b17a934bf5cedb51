package api

import (
	"strings"
	"time"

	models "PriceLens/internal/domain/models"
	"PriceLens/internal/usecase"
	pkgcache "PriceLens/pkg/cache"
	xhttp "PriceLens/pkg/http"
	xlogger "PriceLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

const rankResponseTTL = 2 * time.Minute

// ScenariosEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ScenariosEchoHandler struct {
	logger    *xlogger.Logger
	sim       *usecase.ScenarioSimulator
	engine    *usecase.DecisionEngine
	respCache pkgcache.Service
}

func NewScenariosEchoHandler(logger *xlogger.Logger, sim *usecase.ScenarioSimulator, engine *usecase.DecisionEngine) *ScenariosEchoHandler {
	return &ScenariosEchoHandler{logger: logger, sim: sim, engine: engine}
}

// SetResponseCache wires an optional cache for ranked responses. Ranking
// re-simulates the whole requested catalog, so repeated identical requests
// are worth short-circuiting.
func (h *ScenariosEchoHandler) SetResponseCache(c pkgcache.Service) { h.respCache = c }

func (h *ScenariosEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/scenarios", h.Catalog)
	g.POST("/simulate", h.Simulate)
	g.POST("/simulate/segment", h.SimulateSegment)
	g.POST("/rank", h.Rank)
	g.POST("/compare", h.Compare)
}

func (h *ScenariosEchoHandler) Catalog(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.DefaultScenarios)
}

func (h *ScenariosEchoHandler) Simulate(c echo.Context) error {
	req := &models.SimulateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Scenario.RecalcPriceChange()

	res, err := h.sim.SimulateScenario(c.Request().Context(), req.Scenario, usecase.SimulateOptions{
		Cohort:   req.Cohort,
		UseStats: req.UseStats,
	})
	if err != nil {
		h.logger.Error("simulate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScenariosEchoHandler) SimulateSegment(c echo.Context) error {
	req := &models.SegmentSimulateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Scenario.RecalcPriceChange()

	res, err := h.sim.SimulateScenario(c.Request().Context(), req.Scenario, usecase.SimulateOptions{
		Cohort:        req.Cohort,
		TargetSegment: req.TargetSegment,
	})
	if err != nil {
		h.logger.Error("segment simulate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScenariosEchoHandler) Rank(c echo.Context) error {
	req := &models.RankRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	key := pkgcache.GenerateKeyWithParams("rank",
		req.Objective, req.Cohort, strings.Join(req.ScenarioIDs, ","), req.Constraints)
	if h.respCache != nil {
		var cached interface{}
		if err := h.respCache.Get(ctx, key, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	results := make([]*models.SimulationResult, 0, len(req.ScenarioIDs))
	for _, id := range req.ScenarioIDs {
		sc, ok := models.FindScenario(models.DefaultScenarios, id)
		if !ok {
			return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("scenario %s not found", id))
		}
		res, err := h.sim.SimulateScenario(ctx, *sc, usecase.SimulateOptions{Cohort: req.Cohort})
		if err != nil {
			h.logger.Error("rank simulate error", xlogger.String("scenario", id), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		results = append(results, res)
	}
	ranked := h.engine.RankScenarios(results, req.Objective, req.Constraints)

	if h.respCache != nil {
		if err := h.respCache.Set(ctx, key, ranked, rankResponseTTL); err != nil {
			h.logger.Warn("rank response cache write failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, ranked)
}

func (h *ScenariosEchoHandler) Compare(c echo.Context) error {
	req := &models.CompareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	for i := range req.Scenarios {
		req.Scenarios[i].RecalcPriceChange()
	}

	entries := h.sim.CompareScenarios(c.Request().Context(), req.Scenarios, usecase.SimulateOptions{Cohort: req.Cohort})
	return xhttp.SuccessResponse(c, entries)
}
