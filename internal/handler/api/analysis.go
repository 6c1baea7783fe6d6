package api

import (
	"errors"
	"net/http"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	xlogger "TradePulse/pkg/logger"
	"TradePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler serves per-asset analysis and model training.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.AnalyzerUseCase
}

func NewAnalysisHandler(logger *xlogger.Logger, analyzer *usecase.AnalyzerUseCase) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, analyzer: analyzer}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/asset-analysis/:type/:id", h.Analyze)
	g.POST("/model/train", h.Train)
}

// Analyze returns signal, indicators, optional ML prediction, trade
// levels and risk for one tracked asset.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AssetAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	days := util.ParseIntDefault(c.QueryParam("days"), 0)
	res, err := h.analyzer.Analyze(c.Request().Context(), req.Type, req.ID, days)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAssetNotFound):
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s/%s is not tracked", req.Type, req.ID))
		case errors.Is(err, usecase.ErrUnknownMarket):
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown market type"))
		case errors.Is(err, usecase.ErrNoSnapshot):
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_NOT_READY", "", "no snapshot published yet", http.StatusServiceUnavailable))
		default:
			h.logger.Error("analysis usecase error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}
	return xhttp.SuccessResponse(c, res)
}

// Train retrains the classifier on recent history and returns the run's
// evaluation metrics.
func (h *AnalysisHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.analyzer.Train(c.Request().Context(), req.Market, req.Limit)
	if err != nil {
		if errors.Is(err, usecase.ErrNoSnapshot) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_NOT_READY", "", "no snapshot published yet", http.StatusServiceUnavailable))
		}
		h.logger.Error("model training failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("training failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, report)
}
