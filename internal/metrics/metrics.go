package metrics

import "math"

// Metric is the closed set of scoring functions a challenge can use.
// Challenges store the metric by name; unknown names fall back to RMSE,
// which is the documented platform default rather than an error.
type Metric int

const (
	RMSE Metric = iota
	Accuracy
	F1
)

func (m Metric) String() string {
	switch m {
	case Accuracy:
		return "accuracy"
	case F1:
		return "f1"
	default:
		return "rmse"
	}
}

// Parse maps a challenge's metric name to a Metric.
// The second result reports whether the name was recognized;
// unrecognized names yield RMSE.
func Parse(name string) (Metric, bool) {
	switch name {
	case "rmse":
		return RMSE, true
	case "accuracy":
		return Accuracy, true
	case "f1":
		return F1, true
	default:
		return RMSE, false
	}
}

// HigherIsBetter reports the ordering direction of the metric.
// Accuracy and F1 grow towards 1.0, everything else is an error measure.
func (m Metric) HigherIsBetter() bool {
	return m == Accuracy || m == F1
}

// Better reports whether score a is strictly better than score b
// under the metric's ordering direction. Equal scores are never better.
func (m Metric) Better(a, b float64) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}

// Evaluate computes the metric over aligned prediction/answer vectors.
// Both slices must be non-empty and of equal length; the caller is
// responsible for alignment. Pure function, no side effects.
func (m Metric) Evaluate(predicted, actual []float64) float64 {
	switch m {
	case Accuracy:
		return accuracy(predicted, actual)
	case F1:
		return f1(predicted, actual)
	default:
		return rmse(predicted, actual)
	}
}

func rmse(predicted, actual []float64) float64 {
	sumSq := 0.0
	for i, p := range predicted {
		d := p - actual[i]
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(predicted)))
}

func accuracy(predicted, actual []float64) float64 {
	correct := 0
	for i, p := range predicted {
		if math.Round(p) == math.Round(actual[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(predicted))
}

func f1(predicted, actual []float64) float64 {
	var tp, fp, fn int
	for i, p := range predicted {
		pred := math.Round(p)
		act := math.Round(actual[i])
		switch {
		case pred == 1 && act == 1:
			tp++
		case pred == 1 && act == 0:
			fp++
		case pred == 0 && act == 1:
			fn++
		}
	}

	precision := 0.0
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
