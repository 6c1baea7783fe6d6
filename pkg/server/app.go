package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"TradePulse/internal/manager"
	"TradePulse/internal/predictor"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	applogger "TradePulse/pkg/logger"
)

// Closer is anything the app must release on shutdown (brokers, pools).
type Closer interface {
	Close() error
}

// App encapsulates the entire application lifecycle: the refresh loop,
// the optional retrain schedule, the HTTP server and infra teardown.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	mgr       *manager.Manager
	retrainer *predictor.Retrainer // nil when no cron configured
	handler   xhttp.Handler
	closers   []Closer

	httpServer *xhttp.Server
}

func New(cfg *config.Config, log *applogger.Logger, mgr *manager.Manager, retrainer *predictor.Retrainer, handler xhttp.Handler, closers ...Closer) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		mgr:       mgr,
		retrainer: retrainer,
		handler:   handler,
		closers:   closers,
	}
}

// Run starts everything and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)

	go func() {
		if err := a.mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("data manager stopped", applogger.Error(err))
		}
	}()
	a.log.Info("data manager started",
		applogger.Duration("tick", a.cfg.Refresh.Tick),
		applogger.Duration("crypto", a.cfg.Refresh.Crypto),
		applogger.Duration("equity", a.cfg.Refresh.Equity),
		applogger.Duration("fund", a.cfg.Refresh.Fund))

	if a.retrainer != nil && a.cfg.Model.RetrainCron != "" {
		if err := a.retrainer.Start(a.cfg.Model.RetrainCron); err != nil {
			a.log.Error("retrain schedule rejected", applogger.Error(err))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	if a.retrainer != nil {
		a.retrainer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
