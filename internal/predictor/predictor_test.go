package predictor

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/indicator"
	"TradePulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// waveSeries oscillates around a mild uptrend so forward returns fall on
// both sides of the labelling target.
func waveSeries(n int) models.PriceSeries {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, 0, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)*0.05 + 10*math.Sin(float64(i)/5)
		s = append(s, models.PricePoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000 + 100*math.Cos(float64(i)/3),
		})
	}
	return s
}

func testConfig(path string) Config {
	return Config{
		Params:       indicator.DefaultParams(),
		Horizon:      3,
		TargetReturn: 0.01,
		TrainSplit:   0.8,
		Path:         path,
	}
}

func TestPredictUntrainedFailsClosed(t *testing.T) {
	s := New(testConfig(""), testLogger(t))
	if s.Trained() {
		t.Fatalf("fresh service reports trained")
	}
	_, err := s.Predict(context.Background(), waveSeries(120))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestPredictShortSeriesFailsClosed(t *testing.T) {
	s := New(testConfig(""), testLogger(t))
	if _, err := s.Train(context.Background(), []models.PriceSeries{waveSeries(150)}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	_, err := s.Predict(context.Background(), waveSeries(MinHistory-1))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestTrainThenPredict(t *testing.T) {
	s := New(testConfig(""), testLogger(t))
	report, err := s.Train(context.Background(), []models.PriceSeries{waveSeries(150)})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if report.Samples < MinHistory {
		t.Fatalf("samples = %d, want at least %d", report.Samples, MinHistory)
	}
	if report.Features != FeatureCount {
		t.Fatalf("features = %d, want %d", report.Features, FeatureCount)
	}
	if !s.Trained() {
		t.Fatalf("service not trained after Train")
	}

	pred, err := s.Predict(context.Background(), waveSeries(120))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Probability < 0 || pred.Probability > 1 {
		t.Fatalf("probability = %v out of [0,1]", pred.Probability)
	}
	if len(pred.FeatureWeights) != FeatureCount {
		t.Fatalf("feature weights = %d, want %d", len(pred.FeatureWeights), FeatureCount)
	}
	if pred.Bucket != confidenceBucket(pred.Probability) {
		t.Fatalf("bucket %q inconsistent with probability %v", pred.Bucket, pred.Probability)
	}
}

func TestTrainTooFewSamples(t *testing.T) {
	s := New(testConfig(""), testLogger(t))
	if _, err := s.Train(context.Background(), []models.PriceSeries{waveSeries(40)}); err == nil {
		t.Fatalf("expected error on tiny history")
	}
	if s.Trained() {
		t.Fatalf("failed training must not install a model")
	}
}

func TestModelPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	first := New(testConfig(path), testLogger(t))
	if _, err := first.Train(context.Background(), []models.PriceSeries{waveSeries(150)}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	series := waveSeries(120)
	want, err := first.Predict(context.Background(), series)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	second := New(testConfig(path), testLogger(t))
	if !second.Trained() {
		t.Fatalf("persisted model not loaded")
	}
	got, err := second.Predict(context.Background(), series)
	if err != nil {
		t.Fatalf("Predict after load: %v", err)
	}
	if math.Abs(got.Probability-want.Probability) > 1e-9 {
		t.Fatalf("probability drifted across reload: %v vs %v", got.Probability, want.Probability)
	}
}

func TestConfidenceBucket(t *testing.T) {
	cases := []struct {
		p    float64
		want models.Confidence
	}{
		{0.9, models.ConfidenceHigh},
		{0.1, models.ConfidenceHigh},
		{0.5, models.ConfidenceMedium},
	}
	for _, c := range cases {
		if got := confidenceBucket(c.p); got != c.want {
			t.Fatalf("confidenceBucket(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); got != 0.5 {
		t.Fatalf("sigmoid(0) = %v, want 0.5", got)
	}
	if got := sigmoid(1000); got != 1 {
		t.Fatalf("sigmoid(1000) = %v, want 1", got)
	}
	if got := sigmoid(-1000); got != 0 {
		t.Fatalf("sigmoid(-1000) = %v, want 0", got)
	}
}

func TestScalerZeroVariance(t *testing.T) {
	xs := [][]float64{{1, 5}, {1, 7}, {1, 9}}
	s := fitScaler(xs)
	out := s.transform([]float64{1, 7})
	if out[0] != 0 {
		t.Fatalf("constant column transform = %v, want 0", out[0])
	}
	if out[1] != 0 {
		t.Fatalf("mean of varying column transform = %v, want 0", out[1])
	}
}

func TestExtractAtSeesOnlyPast(t *testing.T) {
	params := indicator.DefaultParams()
	series := waveSeries(120)
	at := 80

	x1, err := extractAt(series, params, at)
	if err != nil {
		t.Fatalf("extractAt: %v", err)
	}
	// mutate the future; the features at `at` must not change
	series[100].Close = 1e6
	x2, err := extractAt(series, params, at)
	if err != nil {
		t.Fatalf("extractAt after mutation: %v", err)
	}
	for j := range x1 {
		if x1[j] != x2[j] {
			t.Fatalf("feature %d changed when the future changed", j)
		}
	}
}

func TestExtractAtWarmup(t *testing.T) {
	params := indicator.DefaultParams()
	series := waveSeries(120)
	if _, err := extractAt(series, params, params.MinLookback()-1); err == nil {
		t.Fatalf("expected error inside warmup window")
	}
}
