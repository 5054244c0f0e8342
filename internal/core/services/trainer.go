package services

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/evaluation"
	"github.com/custodia-labs/carat/internal/features"
	"github.com/custodia-labs/carat/internal/logger"
)

// minBaseRows is the smallest base dataset that can be split into a
// non-empty training set and a non-empty holdout.
const minBaseRows = 2

// TrainerConfig configures a Trainer.
type TrainerConfig struct {
	// BaseDataset is the canonical dataset fresh fits train on.
	BaseDataset string

	// Seed fixes the train/test split. Zero draws one at construction.
	Seed uint64

	// TestFraction is the share of the base dataset held out.
	TestFraction float64

	// PrintEvaluation logs an evaluation summary after each run.
	PrintEvaluation bool
}

// TrainRequest is one call to Trainer.Train.
type TrainRequest struct {
	// Current is the published model, nil if there is none.
	Current *domain.ModelArtifact

	// Data is new labelled data, nil if there is none.
	Data *domain.RawTable

	// Full forces a fresh fit on the base dataset.
	Full bool
}

// Trainer fits, evaluates and persists model versions.
//
// The holdout is derived from the base dataset the first time it is needed
// and reused for the life of the Trainer, so metrics of successive versions
// are comparable. Train is not safe for concurrent use; the lifecycle
// manager serialises calls.
type Trainer struct {
	learner driven.Learner
	store   driven.ModelStore
	dataset driven.DatasetReader
	config  TrainerConfig
	now     func() time.Time

	mu        sync.Mutex
	seed      uint64
	seedFixed bool
	holdout   *domain.FeatureSet
}

// NewTrainer creates a trainer.
func NewTrainer(
	learner driven.Learner,
	store driven.ModelStore,
	dataset driven.DatasetReader,
	config TrainerConfig,
) *Trainer {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(rand.Uint32())
	}
	if config.TestFraction <= 0 || config.TestFraction >= 1 {
		config.TestFraction = domain.DefaultAppSettings().Training.TestFraction
	}
	return &Trainer{
		learner:   learner,
		store:     store,
		dataset:   dataset,
		config:    config,
		seed:      seed,
		seedFixed: config.Seed != 0,
		now:       time.Now,
	}
}

// Seed returns the split seed used by this trainer.
func (t *Trainer) Seed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seed
}

// adoptSeed replaces a drawn seed with the one a stored model was split
// with, so a restarted process keeps that model's training rows out of
// its holdout. A configured seed or an already derived holdout wins.
func (t *Trainer) adoptSeed(seed uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seed == 0 || t.seedFixed || t.holdout != nil {
		return false
	}
	t.seed = seed
	return true
}

// Train produces a new model version, or reports a no-op when there is
// nothing to train on.
//
// With no current model, or when Full is set, the model is fitted from
// scratch on the base dataset and then, if Data is given, continued on it.
// Otherwise Data is used to continue the current model. In both cases a
// single version is evaluated on the holdout and persisted.
func (t *Trainer) Train(ctx context.Context, req TrainRequest) (*domain.TrainResult, error) {
	start := time.Now()
	result := &domain.TrainResult{RunID: uuid.NewString()}
	log := logger.WithFields(logger.Fields{"run_id": result.RunID})

	var (
		model domain.Regressor
		stats domain.EncodeStats
		err   error
	)

	if req.Current == nil || req.Full {
		result.Mode = domain.TrainFresh
		logger.Section("Fresh training")
		model, stats, err = t.fitFresh(ctx)
		if err != nil {
			return nil, err
		}
		log.WithField("rows", stats.Kept).Info("Fitted model on base dataset")

		if req.Data != nil {
			set, dataStats, err := t.encode(req.Data)
			if err != nil {
				return nil, err
			}
			if set.Len() > 0 {
				if model, err = t.learner.Continue(ctx, model, set); err != nil {
					return nil, fmt.Errorf("continue on new data: %w", err)
				}
				log.WithField("rows", dataStats.Kept).Info("Continued model on new data")
			}
		}
	} else {
		result.Mode = domain.TrainIncremental
		if req.Data == nil {
			log.Info("No new data; keeping current model")
			return t.noOp(result, req.Current, start), nil
		}

		logger.Section("Incremental training")
		set, dataStats, err := t.encode(req.Data)
		if err != nil {
			return nil, err
		}
		stats = dataStats
		if set.Len() == 0 {
			log.WithField("dropped", stats.Dropped()).Warn("New data has no usable rows; keeping current model")
			result.Stats = stats
			return t.noOp(result, req.Current, start), nil
		}

		if _, err := t.holdoutSet(ctx); err != nil {
			return nil, err
		}
		if model, err = t.learner.Continue(ctx, req.Current.Regressor, set); err != nil {
			return nil, fmt.Errorf("continue training: %w", err)
		}
		log.WithField("rows", stats.Kept).Info("Continued model on new data")
	}

	result.Stats = stats
	if err := t.persist(ctx, result, model); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	log.Infof("Model trained correctly in %s", result.Duration.Round(time.Millisecond))
	return result, nil
}

func (t *Trainer) noOp(result *domain.TrainResult, current *domain.ModelArtifact, start time.Time) *domain.TrainResult {
	result.Outcome = domain.OutcomeNoOp
	result.Model = current
	result.Duration = time.Since(start)
	return result
}

// fitFresh loads and splits the base dataset and fits a model on the
// training part.
func (t *Trainer) fitFresh(ctx context.Context) (domain.Regressor, domain.EncodeStats, error) {
	train, stats, err := t.loadBase(ctx)
	if err != nil {
		return nil, stats, err
	}

	model, err := t.learner.Fit(ctx, train)
	if err != nil {
		return nil, stats, fmt.Errorf("fit: %w", err)
	}
	return model, stats, nil
}

// loadBase reads the base dataset, records the holdout if none is held yet
// and returns the training part.
func (t *Trainer) loadBase(ctx context.Context) (domain.FeatureSet, domain.EncodeStats, error) {
	table, err := t.dataset.ReadFile(ctx, t.config.BaseDataset)
	if err != nil {
		return domain.FeatureSet{}, domain.EncodeStats{}, fmt.Errorf("load base dataset: %w", err)
	}
	set, stats, err := features.Encode(table)
	if err != nil {
		return domain.FeatureSet{}, stats, fmt.Errorf("encode base dataset: %w", err)
	}
	if set.Len() < minBaseRows {
		return domain.FeatureSet{}, stats, fmt.Errorf("%w: base dataset %s has %d usable rows",
			domain.ErrInvalidInput, t.config.BaseDataset, set.Len())
	}

	seed := t.Seed()
	train, test := splitHoldout(set, seed, t.config.TestFraction)

	t.mu.Lock()
	if t.holdout == nil {
		t.holdout = &test
		logger.Debug("holdout fixed at %d rows (seed %d)", test.Len(), seed)
	}
	t.mu.Unlock()

	return train, stats, nil
}

// holdoutSet returns the fixed holdout, deriving it from the base dataset
// on first use.
func (t *Trainer) holdoutSet(ctx context.Context) (domain.FeatureSet, error) {
	t.mu.Lock()
	held := t.holdout
	t.mu.Unlock()
	if held != nil {
		return *held, nil
	}

	if _, _, err := t.loadBase(ctx); err != nil {
		return domain.FeatureSet{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.holdout, nil
}

func (t *Trainer) encode(table *domain.RawTable) (domain.FeatureSet, domain.EncodeStats, error) {
	set, stats, err := features.Encode(table)
	if err != nil {
		return set, stats, fmt.Errorf("encode %s: %w", table.Source, err)
	}
	if stats.Dropped() > 0 {
		logger.WithFields(logger.Fields{
			"source":    table.Source,
			"missing":   stats.DroppedMissing,
			"price":     stats.DroppedPrice,
			"size":      stats.DroppedSize,
			"unknown":   stats.DroppedUnknown,
			"malformed": stats.DroppedMalformed,
		}).Info("Dropped invalid rows")
	}
	return set, stats, nil
}

// persist evaluates model on the holdout and writes the model and its
// evaluation record.
func (t *Trainer) persist(ctx context.Context, result *domain.TrainResult, model domain.Regressor) error {
	holdout, err := t.holdoutSet(ctx)
	if err != nil {
		return err
	}

	predictions := make([]float64, holdout.Len())
	for i, row := range holdout.Rows {
		predictions[i] = model.Predict(row)
	}
	metrics, err := evaluation.Evaluate(predictions, holdout.Target)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	payload, err := t.learner.Encode(model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	version, err := t.store.Save(ctx, t.now(), payload)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	logger.Info("Model saved to %s", version.Path)

	path, err := t.store.SaveEvaluation(ctx, domain.EvaluationRecord{
		ModelID: version.ID,
		Seed:    t.Seed(),
		Metrics: metrics,
	})
	if err != nil {
		// The model file is complete and usable; only its record is lost.
		logger.Warn("Could not save evaluation of %s: %v", version.ID, err)
	}

	if t.config.PrintEvaluation {
		logger.Info("--- Regression Performance --- RMSE: %v - MAE: %v - R2: %v",
			metrics.RMSE, metrics.MAE, metrics.R2)
	}

	result.Outcome = domain.OutcomeTrained
	result.Metrics = metrics
	result.EvaluationPath = path
	result.Model = &domain.ModelArtifact{
		Version:   version,
		Regressor: model,
		Metrics:   &metrics,
	}
	return nil
}

// splitHoldout shuffles set with seed and returns the training part and
// the test part. The test part has ceil(fraction*n) rows, clamped so both
// parts are non-empty.
func splitHoldout(set domain.FeatureSet, seed uint64, fraction float64) (train, test domain.FeatureSet) {
	n := set.Len()
	nTest := int(math.Ceil(fraction * float64(n)))
	nTest = max(1, min(nTest, n-1))

	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)

	test = subset(set, perm[:nTest])
	train = subset(set, perm[nTest:])
	return train, test
}

func subset(set domain.FeatureSet, idx []int) domain.FeatureSet {
	out := domain.FeatureSet{
		Rows:   make([][]float64, len(idx)),
		Target: make([]float64, len(idx)),
	}
	for i, j := range idx {
		out.Rows[i] = set.Rows[j]
		out.Target[i] = set.Target[j]
	}
	return out
}
