package gbm

import "github.com/custodia-labs/carat/internal/core/domain"

func featureSet(x [][]float64, y []float64) domain.FeatureSet {
	return domain.FeatureSet{Rows: x, Target: y}
}
