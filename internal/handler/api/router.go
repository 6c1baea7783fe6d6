package api

import (
	"net/http"
	"time"

	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/manager"
	xhttp "TradePulse/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router aggregates all API handlers behind one RegisterRoutes, the
// shape pkg/http.NewServer expects.
type Router struct {
	market   *MarketHandler
	analysis *AnalysisHandler
	mgr      *manager.Manager
	store    domrepo.CandleStore // optional
	started  time.Time
}

func NewRouter(market *MarketHandler, analysis *AnalysisHandler, mgr *manager.Manager, store domrepo.CandleStore) *Router {
	return &Router{
		market:   market,
		analysis: analysis,
		mgr:      mgr,
		store:    store,
		started:  time.Now(),
	}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.market.RegisterRoutes(e)
	r.analysis.RegisterRoutes(e)
	e.GET("/health", r.Health)
}

// Health reports liveness plus readiness details: snapshot presence and
// history-store reachability.
func (r *Router) Health(c echo.Context) error {
	type component struct {
		Status string `json:"status"`
		Detail string `json:"detail,omitempty"`
	}
	out := map[string]component{
		"service": {Status: "ok", Detail: "up " + time.Since(r.started).Truncate(time.Second).String()},
	}
	healthy := true

	if snap := r.mgr.Latest(); snap != nil {
		out["snapshot"] = component{Status: "ok", Detail: snap.PublishedAt.Format(time.RFC3339)}
	} else {
		out["snapshot"] = component{Status: "pending", Detail: "no refresh cycle completed yet"}
	}

	if r.store != nil {
		if err := r.store.Health(c.Request().Context()); err != nil {
			out["history_store"] = component{Status: "error", Detail: err.Error()}
			healthy = false
		} else {
			out["history_store"] = component{Status: "ok"}
		}
	}

	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, out)
	}
	return xhttp.SuccessResponse(c, out)
}
