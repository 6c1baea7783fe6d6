package service

import (
	"context"

	"TradePulse/internal/domain/models"
)

// Predictor estimates the probability of a positive short-horizon return
// from a price series. Implementations must fail closed: too little history
// yields an explicit unavailable error, never a fabricated probability.
type Predictor interface {
	Predict(ctx context.Context, series models.PriceSeries) (models.Prediction, error)
	Trained() bool
}

// Trainable is implemented by predictors that support retraining at runtime.
type Trainable interface {
	Train(ctx context.Context, history []models.PriceSeries) (TrainReport, error)
}

// TrainReport summarizes one training run.
type TrainReport struct {
	Samples   int     `json:"samples"`
	Features  int     `json:"features"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
}
