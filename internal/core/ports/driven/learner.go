package driven

import (
	"context"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// Learner trains regression models and converts them to and from bytes.
type Learner interface {
	// Fit trains a new model from scratch.
	Fit(ctx context.Context, set domain.FeatureSet) (domain.Regressor, error)

	// Continue returns a new model seeded from base's learned state and
	// boosted further on set. base is not modified.
	Continue(ctx context.Context, base domain.Regressor, set domain.FeatureSet) (domain.Regressor, error)

	// Encode serialises a model so Decode reproduces it bit-identically.
	Encode(model domain.Regressor) ([]byte, error)

	// Decode reads a model written by Encode.
	Decode(data []byte) (domain.Regressor, error)
}
