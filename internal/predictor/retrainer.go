package predictor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
)

// SeriesSource supplies the training corpus for a scheduled retrain,
// typically the manager's accumulated series plus stored candles.
type SeriesSource func(ctx context.Context) ([]models.PriceSeries, error)

// Retrainer retrains the model on a cron schedule so signal quality
// tracks the market instead of the last manual training run.
type Retrainer struct {
	cron    *cron.Cron
	target  service.Trainable
	source  SeriesSource
	log     *logger.Logger
	timeout time.Duration
}

func NewRetrainer(target service.Trainable, source SeriesSource, log *logger.Logger) *Retrainer {
	return &Retrainer{
		cron:    cron.New(),
		target:  target,
		source:  source,
		log:     log,
		timeout: 5 * time.Minute,
	}
}

// Start registers the schedule and begins firing. Schedules use the
// standard 5-field cron format, e.g. "0 3 * * *" for nightly.
func (r *Retrainer) Start(spec string) error {
	_, err := r.cron.AddFunc(spec, r.run)
	if err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("predictor retrain scheduled", logger.String("cron", spec))
	return nil
}

// Stop halts the schedule, waiting for an in-flight run to finish.
func (r *Retrainer) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Retrainer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	history, err := r.source(ctx)
	if err != nil {
		r.log.Error("retrain skipped, history unavailable", logger.Error(err))
		return
	}
	report, err := r.target.Train(ctx, history)
	if err != nil {
		r.log.Error("scheduled retrain failed", logger.Error(err))
		return
	}
	r.log.Info("scheduled retrain complete",
		logger.Int("samples", report.Samples),
		logger.Float64("f1", report.F1))
}
