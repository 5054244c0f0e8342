package gbm

import (
	"errors"
	"fmt"
	"math"
)

// Params configures boosting.
type Params struct {
	// Rounds is the number of trees added per Fit or Continue call.
	Rounds int `json:"rounds"`

	// MaxDepth bounds the depth of each tree.
	MaxDepth int `json:"max_depth"`

	// LearningRate shrinks every leaf weight.
	LearningRate float64 `json:"learning_rate"`

	// Lambda is the L2 regularisation on leaf weights.
	Lambda float64 `json:"lambda"`

	// MinChildWeight is the minimum hessian sum allowed in a child.
	MinChildWeight float64 `json:"min_child_weight"`

	// MaxBins bounds the histogram bins per feature.
	MaxBins int `json:"max_bins"`
}

// DefaultParams mirrors the defaults of an XGBoost regressor.
func DefaultParams() Params {
	return Params{
		Rounds:         100,
		MaxDepth:       6,
		LearningRate:   0.3,
		Lambda:         1,
		MinChildWeight: 1,
		MaxBins:        256,
	}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	var errs []error
	if p.Rounds < 1 {
		errs = append(errs, fmt.Errorf("rounds must be >= 1, got %d", p.Rounds))
	}
	if p.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("max depth must be >= 1, got %d", p.MaxDepth))
	}
	if !(p.LearningRate > 0) || math.IsInf(p.LearningRate, 0) {
		errs = append(errs, fmt.Errorf("learning rate must be > 0, got %v", p.LearningRate))
	}
	if p.Lambda < 0 || math.IsNaN(p.Lambda) {
		errs = append(errs, fmt.Errorf("lambda must be >= 0, got %v", p.Lambda))
	}
	if p.MinChildWeight < 0 || math.IsNaN(p.MinChildWeight) {
		errs = append(errs, fmt.Errorf("min child weight must be >= 0, got %v", p.MinChildWeight))
	}
	if p.MaxBins < 2 || p.MaxBins > math.MaxUint16 {
		errs = append(errs, fmt.Errorf("max bins must be in [2, %d], got %d", math.MaxUint16, p.MaxBins))
	}
	return errors.Join(errs...)
}
