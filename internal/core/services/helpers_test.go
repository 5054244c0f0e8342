package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carat/internal/adapters/driven/storage/modelfs"
	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/gbm"
)

const basePath = "datasets/diamonds/diamonds.csv"

// diamondPrice is the noise-free price of the synthetic catalogue.
func diamondPrice(carat float64, cut, color, clarity int) float64 {
	return 3500*carat + 200*float64(4-cut) + 150*float64(6-color) + 100*float64(7-clarity)
}

// synthDiamonds builds n deterministic diamonds priced by diamondPrice.
func synthDiamonds(n int, seed uint64) *domain.RawTable {
	r := rand.New(rand.NewPCG(seed, seed+1))
	table := &domain.RawTable{Source: fmt.Sprintf("synthetic-%d", seed), Columns: domain.RequiredColumns}
	for i := 0; i < n; i++ {
		carat := 0.2 + 1.8*r.Float64()
		cut := r.IntN(len(domain.CutLevels))
		color := r.IntN(len(domain.ColorLevels))
		clarity := r.IntN(len(domain.ClarityLevels))
		x := 6.5 * math.Cbrt(carat)
		table.Records = append(table.Records, domain.RawRecord{
			Cut:     domain.CutLevels[cut],
			Color:   domain.ColorLevels[color],
			Clarity: domain.ClarityLevels[clarity],
			Carat:   carat,
			Depth:   58 + 6*r.Float64(),
			Table:   53 + 9*r.Float64(),
			Price:   diamondPrice(carat, cut, color, clarity),
			X:       x,
			Y:       x * (0.98 + 0.04*r.Float64()),
			Z:       0.62 * x,
		})
	}
	return table
}

// invalidDiamonds has rows the encoder always drops.
func invalidDiamonds(n int) *domain.RawTable {
	table := synthDiamonds(n, 99)
	for i := range table.Records {
		table.Records[i].Price = -1
	}
	return table
}

// fakeDataset serves tables from memory.
type fakeDataset struct {
	mu     sync.Mutex
	tables map[string]*domain.RawTable
	errs   map[string]error
	reads  int
}

func newFakeDataset() *fakeDataset {
	return &fakeDataset{
		tables: map[string]*domain.RawTable{},
		errs:   map[string]error{},
	}
}

func (f *fakeDataset) put(path string, table *domain.RawTable) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[path] = table
}

func (f *fakeDataset) fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[path] = err
}

func (f *fakeDataset) ReadFile(_ context.Context, path string) (*domain.RawTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	table, ok := f.tables[path]
	if !ok {
		return nil, fmt.Errorf("open dataset: %w", os.ErrNotExist)
	}
	return table, nil
}

func (f *fakeDataset) Read(_ context.Context, _ io.Reader, _ string) (*domain.RawTable, error) {
	return nil, errors.New("not supported")
}

// testParams keeps fits fast.
func testParams() gbm.Params {
	p := gbm.DefaultParams()
	p.Rounds = 20
	p.MaxDepth = 4
	return p
}

func newLearner(t *testing.T, p gbm.Params) *gbm.Learner {
	t.Helper()
	l, err := gbm.NewLearner(p)
	require.NoError(t, err)
	return l
}

// slowLearner delays every fit and tracks how many run at once.
type slowLearner struct {
	*gbm.Learner
	delay time.Duration
	gate  chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
	started   chan struct{}
}

func newSlowLearner(t *testing.T, delay time.Duration) *slowLearner {
	return &slowLearner{
		Learner: newLearner(t, testParams()),
		delay:   delay,
		started: make(chan struct{}, 16),
	}
}

func (s *slowLearner) enter() func() {
	n := s.active.Add(1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	s.started <- struct{}{}
	if s.gate != nil {
		<-s.gate
	}
	time.Sleep(s.delay)
	return func() { s.active.Add(-1) }
}

func (s *slowLearner) Fit(ctx context.Context, set domain.FeatureSet) (domain.Regressor, error) {
	defer s.enter()()
	return s.Learner.Fit(ctx, set)
}

func (s *slowLearner) Continue(ctx context.Context, base domain.Regressor, set domain.FeatureSet) (domain.Regressor, error) {
	defer s.enter()()
	return s.Learner.Continue(ctx, base, set)
}

// fakeRecorder captures metrics calls.
type fakeRecorder struct {
	mu        sync.Mutex
	trainings []domain.TrainOutcome
	errors    int
	published []string
	watch     []string
}

func (f *fakeRecorder) TrainingFinished(_ domain.TrainMode, outcome domain.TrainOutcome, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.errors++
		return
	}
	f.trainings = append(f.trainings, outcome)
}

func (f *fakeRecorder) ModelPublished(version string, _ *domain.Metrics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, version)
}

func (f *fakeRecorder) WatchEvent(kind domain.WatchEventKind, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watch = append(f.watch, string(kind)+":"+result)
}

func (f *fakeRecorder) watchResults() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.watch...)
}

type fixture struct {
	dir     string
	store   *modelfs.Store
	dataset *fakeDataset
	learner *gbm.Learner
	trainer *Trainer
}

// newFixture wires a trainer over a temp model store and a synthetic base
// dataset.
func newFixture(t *testing.T, seed uint64) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:     dir,
		store:   modelfs.NewStore(dir),
		dataset: newFakeDataset(),
		learner: newLearner(t, testParams()),
	}
	f.dataset.put(basePath, synthDiamonds(400, 1))
	f.trainer = NewTrainer(f.learner, f.store, f.dataset, TrainerConfig{
		BaseDataset:  basePath,
		Seed:         seed,
		TestFraction: 0.3,
	})
	return f
}

func modelfsStoreAt(dir string) *modelfs.Store {
	return modelfs.NewStore(dir)
}
