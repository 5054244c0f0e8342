package gbm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// formatVersion tags the JSON encoding of a Model.
const formatVersion = "carat-gbm/1"

// ErrNoRows is returned when there is nothing to fit.
var ErrNoRows = errors.New("gbm: no training rows")

// Ensure Model implements the domain interface.
var _ domain.Regressor = (*Model)(nil)

// Model is a trained ensemble. It is never mutated after training.
type Model struct {
	params      Params
	baseScore   float64
	numFeatures int
	trees       []tree
}

// Fit trains a new model from scratch. The base score is the target mean.
func Fit(ctx context.Context, p Params, x [][]float64, y []float64) (*Model, error) {
	if err := checkInput(x, y); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("gbm: %w", err)
	}

	var sum float64
	for _, v := range y {
		sum += v
	}
	m := &Model{
		params:      p,
		baseScore:   sum / float64(len(y)),
		numFeatures: len(x[0]),
	}
	if err := m.boost(ctx, x, y); err != nil {
		return nil, err
	}
	return m, nil
}

// Continue returns a copy of base extended by p.Rounds trees fitted on
// x and y, starting from base's predictions. base is left untouched.
func Continue(ctx context.Context, p Params, base *Model, x [][]float64, y []float64) (*Model, error) {
	if base == nil {
		return nil, errors.New("gbm: continue requires a base model")
	}
	if err := checkInput(x, y); err != nil {
		return nil, err
	}
	if len(x[0]) != base.numFeatures {
		return nil, fmt.Errorf("gbm: base model expects %d features, got %d", base.numFeatures, len(x[0]))
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("gbm: %w", err)
	}

	m := &Model{
		params:      p,
		baseScore:   base.baseScore,
		numFeatures: base.numFeatures,
		trees:       append(make([]tree, 0, len(base.trees)+p.Rounds), base.trees...),
	}
	if err := m.boost(ctx, x, y); err != nil {
		return nil, err
	}
	return m, nil
}

func checkInput(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return ErrNoRows
	}
	if len(x) != len(y) {
		return fmt.Errorf("gbm: %d rows but %d targets", len(x), len(y))
	}
	nf := len(x[0])
	if nf == 0 {
		return errors.New("gbm: rows have no features")
	}
	for i, row := range x {
		if len(row) != nf {
			return fmt.Errorf("gbm: row %d has %d features, want %d", i, len(row), nf)
		}
	}
	return nil
}

// boost appends m.params.Rounds trees. The context is checked between rounds.
func (m *Model) boost(ctx context.Context, x [][]float64, y []float64) error {
	n := len(x)
	bins := binFeatures(x, m.params.MaxBins)

	pred := make([]float64, n)
	for i := range x {
		pred[i] = m.Predict(x[i])
	}

	b := &builder{
		params: m.params,
		bins:   bins,
		grad:   make([]float64, n),
		hess:   make([]float64, n),
	}
	rows := make([]int, n)

	for round := 0; round < m.params.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("gbm: round %d: %w", round, err)
		}
		for i := range pred {
			b.grad[i] = pred[i] - y[i]
			b.hess[i] = 1
			rows[i] = i
		}
		t := b.build(rows)
		m.trees = append(m.trees, t)
		for i := range x {
			pred[i] += t.predict(x[i])
		}
	}
	return nil
}

// Predict returns the model output for one feature vector.
func (m *Model) Predict(x []float64) float64 {
	s := m.baseScore
	for i := range m.trees {
		s += m.trees[i].predict(x)
	}
	return s
}

// PredictBatch scores every row.
func (m *Model) PredictBatch(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = m.Predict(x[i])
	}
	return out
}

// Rounds returns the number of trees.
func (m *Model) Rounds() int {
	return len(m.trees)
}

// NumFeatures returns the width of the feature vectors the model expects.
func (m *Model) NumFeatures() int {
	return m.numFeatures
}

// Params returns the parameters of the most recent training call.
func (m *Model) Params() Params {
	return m.params
}

type modelJSON struct {
	Format      string  `json:"format"`
	Params      Params  `json:"params"`
	BaseScore   float64 `json:"base_score"`
	NumFeatures int     `json:"num_features"`
	Trees       []tree  `json:"trees"`
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelJSON{
		Format:      formatVersion,
		Params:      m.params,
		BaseScore:   m.baseScore,
		NumFeatures: m.numFeatures,
		Trees:       m.trees,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded trees are checked
// for structural validity.
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("gbm: decode model: %w", err)
	}
	if raw.Format != formatVersion {
		return fmt.Errorf("gbm: unsupported model format %q", raw.Format)
	}
	if raw.NumFeatures < 1 {
		return fmt.Errorf("gbm: invalid feature count %d", raw.NumFeatures)
	}
	for ti := range raw.Trees {
		if err := raw.Trees[ti].check(raw.NumFeatures); err != nil {
			return fmt.Errorf("gbm: tree %d: %w", ti, err)
		}
	}
	*m = Model{
		params:      raw.Params,
		baseScore:   raw.BaseScore,
		numFeatures: raw.NumFeatures,
		trees:       raw.Trees,
	}
	return nil
}

// check verifies every child index points forward inside the tree, which
// also rules out cycles.
func (t *tree) check(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: child %d out of range", i, child)
			}
		}
	}
	return nil
}
