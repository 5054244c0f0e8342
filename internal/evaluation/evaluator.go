// Package evaluation scores regression predictions against ground truth.
package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// Evaluate computes RMSE, MAE and R² of predictions against truth.
// Both sequences must be non-empty and of equal length, otherwise it returns
// an error wrapping domain.ErrShape.
//
// When truth is constant R² is undefined; it is reported as 1 for a perfect
// fit and 0 otherwise.
func Evaluate(predictions, truth []float64) (domain.Metrics, error) {
	if len(predictions) == 0 || len(truth) == 0 {
		return domain.Metrics{}, fmt.Errorf("%w: empty input (predictions=%d, truth=%d)",
			domain.ErrShape, len(predictions), len(truth))
	}
	if len(predictions) != len(truth) {
		return domain.Metrics{}, fmt.Errorf("%w: predictions=%d, truth=%d",
			domain.ErrShape, len(predictions), len(truth))
	}

	n := float64(len(truth))
	m := domain.Metrics{
		RMSE: floats.Distance(predictions, truth, 2) / math.Sqrt(n),
		MAE:  floats.Distance(predictions, truth, 1) / n,
	}

	mean := stat.Mean(truth, nil)
	var total float64
	for _, v := range truth {
		total += (v - mean) * (v - mean)
	}
	switch {
	case total > 0:
		m.R2 = stat.RSquaredFrom(predictions, truth, nil)
	case m.MAE == 0:
		m.R2 = 1
	default:
		m.R2 = 0
	}
	return m, nil
}
