package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/internal/service/ratelimit"
	"Booster/internal/usecase"
	"Booster/pkg/cache"
	xhttp "Booster/pkg/http"
	xlogger "Booster/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const thresholdsTTL = 30 * time.Second

// TablesEchoHandler serves the persisted tables read-only and accepts run
// triggers.
type TablesEchoHandler struct {
	logger *xlogger.Logger
	tables *usecase.TablesUseCase
	runner usecase.RunStarter
	cache  cache.Service
	rl     *ratelimit.Limiter
}

func NewTablesEchoHandler(logger *xlogger.Logger, tables *usecase.TablesUseCase, runner usecase.RunStarter) *TablesEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TablesEchoHandler{logger: logger, tables: tables, runner: runner, rl: ratelimit.New()}
}

// SetCache enables short-lived caching of the thresholds report.
func (h *TablesEchoHandler) SetCache(c cache.Service) { h.cache = c }

func (h *TablesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/tables/:tf", h.Tables)
	g.GET("/candles", h.Candles)
	g.GET("/thresholds", h.Thresholds)
	g.POST("/runs", h.Runs)
}

func (h *TablesEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *TablesEchoHandler) Tables(c echo.Context) error {
	req := &models.TablesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tickers, err := h.tables.List(c.Request().Context(), domrepo.Timeframe(req.Timeframe))
	if err != nil {
		h.logger.Error("list tables error", xlogger.Error(err))
		return h.errorResponse(c, err)
	}
	return xhttp.ListResponse(c, tickers, int64(len(tickers)))
}

func (h *TablesEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.tables.Candles(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TablesEchoHandler) Thresholds(c echo.Context) error {
	req := &models.ThresholdsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	key := cache.GenerateKey("thresholds", strings.Join(req.Instruments, ","))
	if h.cache != nil {
		var cached []models.Threshold
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			c.Response().Header().Set("X-Cache", "HIT")
			return xhttp.ListResponse(c, cached, int64(len(cached)))
		}
	}

	rows, err := h.tables.Thresholds(ctx, req.Instruments)
	if err != nil {
		h.logger.Error("thresholds error", xlogger.Error(err))
		return h.errorResponse(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, rows, thresholdsTTL); err != nil {
			h.logger.Warn("thresholds cache write failed", xlogger.Error(err))
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Runs starts a pipeline run in the background and answers 202 with its id,
// or 503 while another run holds the lock. Triggers are limited to one per
// client every 10 seconds.
func (h *TablesEchoHandler) Runs(c echo.Context) error {
	if !h.rl.Allow("runs:"+c.RealIP(), 1, 0.1) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "run trigger rate limited", http.StatusTooManyRequests))
	}

	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.RunID = uuid.NewString()

	runID, err := h.runner.Start(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	h.logger.Info("run triggered", xlogger.String("run_id", runID))
	return xhttp.AcceptedResponse(c, map[string]string{"run_id": runID})
}

func (h *TablesEchoHandler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrTableNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("table not found").WithError(err))
	case errors.Is(err, domrepo.ErrInvalidInput):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%v", err).WithError(err))
	case errors.Is(err, domrepo.ErrRunInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("a pipeline run is already in progress").WithError(err))
	default:
		return xhttp.AppErrorResponse(c, err)
	}
}
