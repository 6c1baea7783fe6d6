package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	"TradePulse/internal/indicator"
	"TradePulse/pkg/logger"
)

// ErrUnavailable is returned when no trained model exists or the series
// is too short to build features. Callers degrade to technical-only
// analysis; a probability is never fabricated.
var ErrUnavailable = errors.New("predictor: prediction unavailable")

// MinHistory is the fewest closes Predict will accept.
const MinHistory = 30

// Config tunes the training objective and persistence.
type Config struct {
	Params       indicator.Params
	Horizon      int     // bars ahead the label looks
	TargetReturn float64 // forward return that counts as positive
	TrainSplit   float64 // chronological train fraction
	Path         string  // model file, empty disables persistence
}

// Service is a logistic-regression return classifier. It satisfies both
// service.Predictor and service.Trainable; a zero-value model stays
// unavailable until Train or a successful load.
type Service struct {
	cfg Config
	log *logger.Logger

	mu        sync.RWMutex
	model     *logistic
	scale     *scaler
	trainedAt time.Time
}

var _ service.Predictor = (*Service)(nil)
var _ service.Trainable = (*Service)(nil)

func New(cfg Config, log *logger.Logger) *Service {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 3
	}
	if cfg.TargetReturn <= 0 {
		cfg.TargetReturn = 0.05
	}
	if cfg.TrainSplit <= 0 || cfg.TrainSplit >= 1 {
		cfg.TrainSplit = 0.8
	}
	s := &Service{cfg: cfg, log: log}
	if cfg.Path != "" {
		if err := s.load(cfg.Path); err == nil {
			log.Info("predictor model loaded", logger.String("path", cfg.Path))
		}
	}
	return s
}

// Trained reports whether a usable model is loaded.
func (s *Service) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Predict classifies the series' latest bar. Fails closed with
// ErrUnavailable when untrained or when history is too short.
func (s *Service) Predict(ctx context.Context, series models.PriceSeries) (models.Prediction, error) {
	s.mu.RLock()
	model, scale := s.model, s.scale
	s.mu.RUnlock()

	if model == nil {
		return models.Prediction{}, ErrUnavailable
	}
	if len(series) < MinHistory {
		return models.Prediction{}, fmt.Errorf("%w: %d of %d closes", ErrUnavailable, len(series), MinHistory)
	}

	x, err := extractAt(series, s.cfg.Params, len(series)-1)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	p := model.prob(scale.transform(x))

	weights := make(map[string]float64, len(featureNames))
	for j, name := range featureNames {
		weights[name] = model.Weights[j]
	}
	return models.Prediction{
		Probability:    p,
		Bucket:         confidenceBucket(p),
		FeatureWeights: weights,
	}, nil
}

// confidenceBucket: probabilities far from 0.5 are decisive either way.
func confidenceBucket(p float64) models.Confidence {
	if p > 0.7 || p < 0.3 {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

// Train fits a new model on the pooled history and swaps it in only when
// training succeeds; a failed run keeps the previous model serving.
func (s *Service) Train(ctx context.Context, history []models.PriceSeries) (service.TrainReport, error) {
	var xs [][]float64
	var ys []float64
	for _, series := range history {
		if err := ctx.Err(); err != nil {
			return service.TrainReport{}, err
		}
		sx, sy := buildDataset(series, s.cfg.Params, s.cfg.Horizon, s.cfg.TargetReturn)
		xs = append(xs, sx...)
		ys = append(ys, sy...)
	}
	if len(xs) < MinHistory {
		return service.TrainReport{}, fmt.Errorf("predictor: %d samples, need %d", len(xs), MinHistory)
	}

	// chronological split: the model must never see its own future
	cut := int(float64(len(xs)) * s.cfg.TrainSplit)
	if cut == 0 || cut == len(xs) {
		cut = len(xs) - 1
	}
	trainX, testX := xs[:cut], xs[cut:]
	trainY, testY := ys[:cut], ys[cut:]

	scale := fitScaler(trainX)
	scaledTrain := make([][]float64, len(trainX))
	for i, x := range trainX {
		scaledTrain[i] = scale.transform(x)
	}
	model, err := trainLogistic(scaledTrain, trainY)
	if err != nil {
		return service.TrainReport{}, err
	}

	scaledTest := make([][]float64, len(testX))
	for i, x := range testX {
		scaledTest[i] = scale.transform(x)
	}
	acc, prec, rec, f1 := model.evaluate(scaledTest, testY)

	s.mu.Lock()
	s.model = model
	s.scale = scale
	s.trainedAt = time.Now()
	s.mu.Unlock()

	report := service.TrainReport{
		Samples:   len(xs),
		Features:  FeatureCount,
		Accuracy:  acc,
		Precision: prec,
		Recall:    rec,
		F1:        f1,
	}
	s.log.Info("predictor trained",
		logger.Int("samples", report.Samples),
		logger.Float64("accuracy", report.Accuracy),
		logger.Float64("f1", report.F1))

	if s.cfg.Path != "" {
		if err := s.save(s.cfg.Path); err != nil {
			s.log.Error("predictor model save failed", logger.Error(err))
		}
	}
	return report, nil
}

type modelFile struct {
	Model        *logistic `json:"model"`
	Scaler       *scaler   `json:"scaler"`
	FeatureNames []string  `json:"feature_names"`
	Horizon      int       `json:"horizon"`
	TargetReturn float64   `json:"target_return"`
	TrainedAt    time.Time `json:"trained_at"`
}

func (s *Service) save(path string) error {
	s.mu.RLock()
	f := modelFile{
		Model:        s.model,
		Scaler:       s.scale,
		FeatureNames: featureNames,
		Horizon:      s.cfg.Horizon,
		TargetReturn: s.cfg.TargetReturn,
		TrainedAt:    s.trainedAt,
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (s *Service) load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f modelFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decode model file: %w", err)
	}
	if f.Model == nil || f.Scaler == nil || len(f.Model.Weights) != FeatureCount {
		return fmt.Errorf("model file %s is incomplete", path)
	}
	s.mu.Lock()
	s.model = f.Model
	s.scale = f.Scaler
	s.trainedAt = f.TrainedAt
	s.mu.Unlock()
	return nil
}
