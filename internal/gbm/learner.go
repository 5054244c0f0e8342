package gbm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
)

// Ensure Learner implements the interface.
var _ driven.Learner = (*Learner)(nil)

// Learner adapts the package to the driven.Learner port.
type Learner struct {
	params Params
}

// NewLearner creates a learner with the given parameters.
func NewLearner(p Params) (*Learner, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("gbm: %w", err)
	}
	return &Learner{params: p}, nil
}

// Fit trains a new model on set.
func (l *Learner) Fit(ctx context.Context, set domain.FeatureSet) (domain.Regressor, error) {
	return Fit(ctx, l.params, set.Rows, set.Target)
}

// Continue warm-starts from base and boosts on set.
func (l *Learner) Continue(ctx context.Context, base domain.Regressor, set domain.FeatureSet) (domain.Regressor, error) {
	m, ok := base.(*Model)
	if !ok {
		return nil, fmt.Errorf("gbm: cannot continue from %T", base)
	}
	return Continue(ctx, l.params, m, set.Rows, set.Target)
}

// Encode serialises a model to JSON.
func (l *Learner) Encode(r domain.Regressor) ([]byte, error) {
	m, ok := r.(*Model)
	if !ok {
		return nil, fmt.Errorf("gbm: cannot encode %T", r)
	}
	return json.Marshal(m)
}

// Decode reads a model written by Encode.
func (l *Learner) Decode(data []byte) (domain.Regressor, error) {
	m := &Model{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
