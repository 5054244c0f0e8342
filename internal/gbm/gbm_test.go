package gbm

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData builds y = 10 for x0 < 5 and y = 20 otherwise, with a noise
// feature that carries no signal.
func stepData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i%10) + 0.5
		x[i] = []float64{v, float64((i * 7) % 3)}
		if v < 5 {
			y[i] = 10
		} else {
			y[i] = 20
		}
	}
	return x, y
}

func testParams() Params {
	p := DefaultParams()
	p.Rounds = 20
	p.MaxDepth = 3
	return p
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero rounds", func(p *Params) { p.Rounds = 0 }},
		{"zero depth", func(p *Params) { p.MaxDepth = 0 }},
		{"zero learning rate", func(p *Params) { p.LearningRate = 0 }},
		{"nan learning rate", func(p *Params) { p.LearningRate = math.NaN() }},
		{"negative lambda", func(p *Params) { p.Lambda = -1 }},
		{"negative min child weight", func(p *Params) { p.MinChildWeight = -1 }},
		{"one bin", func(p *Params) { p.MaxBins = 1 }},
		{"too many bins", func(p *Params) { p.MaxBins = 1 << 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestFit_LearnsStepFunction(t *testing.T) {
	x, y := stepData(200)

	m, err := Fit(context.Background(), testParams(), x, y)

	require.NoError(t, err)
	assert.Equal(t, 20, m.Rounds())
	assert.Equal(t, 2, m.NumFeatures())
	assert.InDelta(t, 10, m.Predict([]float64{1, 0}), 0.01)
	assert.InDelta(t, 20, m.Predict([]float64{8, 2}), 0.01)
}

// TestFit_LeafWeights pins the boosted output on two pure groups of two
// rows. Each round shrinks a group's residual by 1 - eta*n/(n+lambda),
// which is 0.8 here.
func TestFit_LeafWeights(t *testing.T) {
	ctx := context.Background()
	x := [][]float64{{0}, {0}, {1}, {1}}
	y := []float64{10, 10, 30, 30}
	p := Params{Rounds: 5, MaxDepth: 1, LearningRate: 0.3, Lambda: 1, MinChildWeight: 1, MaxBins: 256}

	m, err := Fit(ctx, p, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 13.2768, m.Predict([]float64{0}), 1e-9)
	assert.InDelta(t, 26.7232, m.Predict([]float64{1}), 1e-9)

	p.Rounds = 3
	next, err := Continue(ctx, p, m, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 11.6777216, next.Predict([]float64{0}), 1e-9)
	assert.InDelta(t, 28.3222784, next.Predict([]float64{1}), 1e-9)
}

func TestFit_Deterministic(t *testing.T) {
	x, y := stepData(300)

	a, err := Fit(context.Background(), testParams(), x, y)
	require.NoError(t, err)
	b, err := Fit(context.Background(), testParams(), x, y)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestFit_InputErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Fit(ctx, testParams(), nil, nil)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = Fit(ctx, testParams(), [][]float64{{1}, {2}}, []float64{1})
	assert.Error(t, err)

	_, err = Fit(ctx, testParams(), [][]float64{{1, 2}, {2}}, []float64{1, 2})
	assert.Error(t, err)

	bad := testParams()
	bad.Rounds = 0
	_, err = Fit(ctx, bad, [][]float64{{1}}, []float64{1})
	assert.Error(t, err)
}

func TestFit_CancelledContext(t *testing.T) {
	x, y := stepData(50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, testParams(), x, y)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFit_ConstantTarget(t *testing.T) {
	x, y := stepData(40)
	for i := range y {
		y[i] = 7
	}

	m, err := Fit(context.Background(), testParams(), x, y)

	require.NoError(t, err)
	assert.InDelta(t, 7, m.Predict([]float64{3, 1}), 1e-9)
}

func TestContinue_WarmStart(t *testing.T) {
	ctx := context.Background()
	x, y := stepData(200)
	base, err := Fit(ctx, testParams(), x, y)
	require.NoError(t, err)
	before, err := json.Marshal(base)
	require.NoError(t, err)

	// New data shifts the upper step from 20 to 30.
	nx, ny := stepData(200)
	for i := range ny {
		if ny[i] == 20 {
			ny[i] = 30
		}
	}

	next, err := Continue(ctx, testParams(), base, nx, ny)

	require.NoError(t, err)
	assert.Equal(t, 40, next.Rounds())
	assert.InDelta(t, 30, next.Predict([]float64{8, 0}), 0.5)
	assert.InDelta(t, 10, next.Predict([]float64{1, 0}), 0.5)

	after, err := json.Marshal(base)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "base model must not change")
	assert.InDelta(t, 20, base.Predict([]float64{8, 0}), 0.01)
}

func TestContinue_Errors(t *testing.T) {
	ctx := context.Background()
	x, y := stepData(20)
	base, err := Fit(ctx, testParams(), x, y)
	require.NoError(t, err)

	_, err = Continue(ctx, testParams(), nil, x, y)
	assert.Error(t, err)

	_, err = Continue(ctx, testParams(), base, nil, nil)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = Continue(ctx, testParams(), base, [][]float64{{1, 2, 3}}, []float64{1})
	assert.Error(t, err)
}

func TestModel_JSONRoundTrip(t *testing.T) {
	x, y := stepData(150)
	for i := range y {
		y[i] += float64(i%13) / 3
	}
	m, err := Fit(context.Background(), testParams(), x, y)
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var loaded Model
	require.NoError(t, json.Unmarshal(data, &loaded))

	assert.Equal(t, m.Rounds(), loaded.Rounds())
	assert.Equal(t, m.Params(), loaded.Params())
	for i := range x {
		assert.Equal(t, math.Float64bits(m.Predict(x[i])), math.Float64bits(loaded.Predict(x[i])),
			"row %d differs after reload", i)
	}

	again, err := json.Marshal(&loaded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestModel_UnmarshalRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"wrong format", `{"format":"xgboost","num_features":1,"trees":[]}`},
		{"no features", `{"format":"carat-gbm/1","num_features":0,"trees":[]}`},
		{"empty tree", `{"format":"carat-gbm/1","num_features":1,"trees":[{"nodes":[]}]}`},
		{"feature out of range", `{"format":"carat-gbm/1","num_features":1,"trees":[{"nodes":[{"feature":3,"left":1,"right":2},{"leaf":true},{"leaf":true}]}]}`},
		{"child cycle", `{"format":"carat-gbm/1","num_features":1,"trees":[{"nodes":[{"left":0,"right":1},{"leaf":true}]}]}`},
		{"child out of range", `{"format":"carat-gbm/1","num_features":1,"trees":[{"nodes":[{"left":1,"right":5},{"leaf":true}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Model
			assert.Error(t, json.Unmarshal([]byte(tt.data), &m))
		})
	}
}

func TestMakeCuts(t *testing.T) {
	t.Run("midpoints between distinct values", func(t *testing.T) {
		cuts := makeCuts([]float64{1, 1, 2, 4, 4}, 256)
		assert.Equal(t, []float64{1.5, 3}, cuts)
	})

	t.Run("single value has no cuts", func(t *testing.T) {
		assert.Empty(t, makeCuts([]float64{3, 3, 3}, 256))
	})

	t.Run("quantiles when too many values", func(t *testing.T) {
		sorted := make([]float64, 1000)
		for i := range sorted {
			sorted[i] = float64(i)
		}
		cuts := makeCuts(sorted, 4)
		assert.Equal(t, []float64{250, 500, 750}, cuts)
	})

	t.Run("bins agree with thresholds", func(t *testing.T) {
		cuts := []float64{1.5, 3}
		for _, v := range []float64{0, 1, 1.5, 2, 3, 9} {
			bin := binOf(cuts, v)
			for b := range cuts {
				assert.Equal(t, bin <= b, v < cuts[b], "v=%v b=%d", v, b)
			}
		}
	})
}

func TestLearner(t *testing.T) {
	_, err := NewLearner(Params{})
	assert.Error(t, err)

	l, err := NewLearner(testParams())
	require.NoError(t, err)

	x, y := stepData(100)
	r, err := l.Fit(context.Background(), featureSet(x, y))
	require.NoError(t, err)

	data, err := l.Encode(r)
	require.NoError(t, err)
	decoded, err := l.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, r.Predict(x[3]), decoded.Predict(x[3]))

	next, err := l.Continue(context.Background(), decoded, featureSet(x, y))
	require.NoError(t, err)
	assert.Equal(t, 2*testParams().Rounds, next.Rounds())

	_, err = l.Decode([]byte("garbage"))
	assert.Error(t, err)
}
