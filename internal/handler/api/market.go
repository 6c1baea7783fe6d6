package api

import (
	"errors"
	"net/http"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	xlogger "TradePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the snapshot read and refresh-control endpoints.
type MarketHandler struct {
	logger *xlogger.Logger
	market *usecase.MarketUseCase
}

func NewMarketHandler(logger *xlogger.Logger, market *usecase.MarketUseCase) *MarketHandler {
	return &MarketHandler{logger: logger, market: market}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/market-data", h.Overview)
	g.GET("/market-data/:type", h.MarketData)
	g.POST("/force-update", h.ForceUpdate)
	g.GET("/data-status", h.Status)
}

// Overview returns every market's latest quotes in one payload.
func (h *MarketHandler) Overview(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.market.Overview(req.Limit)
	if err != nil {
		return h.marketError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// MarketData returns one market's ranked quotes.
func (h *MarketHandler) MarketData(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quotes, err := h.market.MarketData(req.Type, req.Limit)
	if err != nil {
		return h.marketError(c, err)
	}
	return xhttp.ListResponse(c, quotes, int64(len(quotes)))
}

// ForceUpdate triggers an immediate refresh cycle. With ?wait=true the
// response is sent only after the new snapshot is published.
func (h *MarketHandler) ForceUpdate(c echo.Context) error {
	req := &models.ForceUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.market.ForceUpdate(c.Request().Context(), req.Wait); err != nil {
		h.logger.Error("force update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("refresh did not complete").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]bool{"triggered": true, "waited": req.Wait})
}

// Status reports the refresh loop state, source health and cache stats.
func (h *MarketHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.market.Status())
}

func (h *MarketHandler) marketError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnknownMarket):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown market type"))
	case errors.Is(err, usecase.ErrNoSnapshot):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_NOT_READY", "", "no snapshot published yet, try again shortly", http.StatusServiceUnavailable))
	default:
		h.logger.Error("market usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
