package predictor

import (
	"errors"
	"math"
)

// scaler standardizes features to zero mean and unit variance, fitted on
// the training split only.
type scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func fitScaler(xs [][]float64) *scaler {
	n := len(xs)
	dims := len(xs[0])
	s := &scaler{Mean: make([]float64, dims), Std: make([]float64, dims)}
	for _, x := range xs {
		for j, v := range x {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= float64(n)
	}
	for _, x := range xs {
		for j, v := range x {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / float64(n))
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s
}

func (s *scaler) transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// logistic is a binary classifier trained with full-batch gradient
// descent and light L2 regularization.
type logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

const (
	trainEpochs  = 300
	learningRate = 0.1
	l2Penalty    = 1e-4
)

var errEmptyTrainSet = errors.New("predictor: empty training set")

func trainLogistic(xs [][]float64, ys []float64) (*logistic, error) {
	if len(xs) == 0 {
		return nil, errEmptyTrainSet
	}
	dims := len(xs[0])
	m := &logistic{Weights: make([]float64, dims)}
	n := float64(len(xs))

	for epoch := 0; epoch < trainEpochs; epoch++ {
		gradW := make([]float64, dims)
		var gradB float64
		for i, x := range xs {
			err := m.prob(x) - ys[i]
			for j, v := range x {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range m.Weights {
			m.Weights[j] -= learningRate * (gradW[j]/n + l2Penalty*m.Weights[j])
		}
		m.Bias -= learningRate * gradB / n
	}
	return m, nil
}

func (m *logistic) prob(x []float64) float64 {
	z := m.Bias
	for j, w := range m.Weights {
		z += w * x[j]
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	// clamp to keep exp well-behaved on extreme inputs
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

// evaluate scores the classifier at the 0.5 threshold.
func (m *logistic) evaluate(xs [][]float64, ys []float64) (accuracy, precision, recall, f1 float64) {
	if len(xs) == 0 {
		return 0, 0, 0, 0
	}
	var tp, tn, fp, fn float64
	for i, x := range xs {
		pred := m.prob(x) >= 0.5
		actual := ys[i] == 1
		switch {
		case pred && actual:
			tp++
		case pred && !actual:
			fp++
		case !pred && actual:
			fn++
		default:
			tn++
		}
	}
	accuracy = (tp + tn) / float64(len(xs))
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return accuracy, precision, recall, f1
}
