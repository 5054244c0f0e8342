package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
	"github.com/custodia-labs/carat/internal/features"
	"github.com/custodia-labs/carat/internal/logger"
)

// Ensure Lifecycle implements the interface.
var _ driving.ModelLifecycle = (*Lifecycle)(nil)

// errNoWatcher is returned by StartWatching when no watcher is configured.
var errNoWatcher = errors.New("directory watcher not configured")

// Lifecycle owns the published model. Readers get an immutable snapshot;
// retrains run one at a time and replace the snapshot only on success.
type Lifecycle struct {
	trainer  *Trainer
	learner  driven.Learner
	store    driven.ModelStore
	dataset  driven.DatasetReader
	watcher  driven.DirectoryWatcher
	recorder driven.MetricsRecorder
	dispatch DispatcherConfig

	current atomic.Pointer[domain.ModelArtifact]

	// slot holds a token while a retrain runs.
	slot     chan struct{}
	training atomic.Bool

	mu            sync.Mutex
	dispatcher    *Dispatcher
	lastTrainedAt time.Time
	lastError     string
}

// NewLifecycle creates a lifecycle manager.
// watcher and recorder may be nil.
func NewLifecycle(
	trainer *Trainer,
	learner driven.Learner,
	store driven.ModelStore,
	dataset driven.DatasetReader,
	watcher driven.DirectoryWatcher,
	recorder driven.MetricsRecorder,
	dispatch DispatcherConfig,
) *Lifecycle {
	return &Lifecycle{
		trainer:  trainer,
		learner:  learner,
		store:    store,
		dataset:  dataset,
		watcher:  watcher,
		recorder: recorder,
		dispatch: dispatch,
		slot:     make(chan struct{}, 1),
	}
}

// Bootstrap publishes the newest stored model. When the store is empty a
// model is trained from the base dataset.
func (l *Lifecycle) Bootstrap(ctx context.Context) (*domain.ModelArtifact, error) {
	stored, ok, err := l.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("find latest model: %w", err)
	}

	if !ok {
		logger.Info("No model was found, a new model will be trained")
		result, err := l.RequestRetrain(ctx, driving.RetrainRequest{Trigger: "bootstrap"})
		if err != nil {
			return nil, err
		}
		return result.Model, nil
	}

	regressor, err := l.learner.Decode(stored.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", stored.Version.ID, err)
	}
	artifact := &domain.ModelArtifact{Version: stored.Version, Regressor: regressor}

	rec, found, err := l.store.LoadEvaluation(ctx, stored.Version.ID)
	switch {
	case err != nil:
		logger.Warn("Could not read evaluation of %s: %v", stored.Version.ID, err)
	case found:
		artifact.Metrics = &rec.Metrics
		if l.trainer.adoptSeed(rec.Seed) {
			logger.Debug("split seed %d taken from evaluation of %s", rec.Seed, stored.Version.ID)
		}
	}

	l.publish(artifact)
	logger.Info("Loaded model %s", stored.Version.Path)
	return artifact, nil
}

// CurrentModel returns the published model.
func (l *Lifecycle) CurrentModel() (*domain.ModelArtifact, error) {
	artifact := l.current.Load()
	if artifact == nil {
		return nil, domain.ErrNoModel
	}
	return artifact, nil
}

// RequestRetrain trains a new version and publishes it. Calls are
// serialised: by default a caller waits for a running retrain, with NoWait
// it is rejected with domain.ErrTrainingInProgress.
func (l *Lifecycle) RequestRetrain(ctx context.Context, req driving.RetrainRequest) (*domain.TrainResult, error) {
	if req.Data == nil && req.DataPath != "" {
		table, err := l.dataset.ReadFile(ctx, req.DataPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.DataPath, err)
		}
		req.Data = table
	}

	if err := l.acquire(ctx, req.NoWait); err != nil {
		return nil, err
	}
	defer l.release()

	current := l.current.Load()
	mode := domain.TrainIncremental
	if current == nil || req.Full {
		mode = domain.TrainFresh
	}
	logger.Debug("retrain requested by %s (mode %s, rows %d)", triggerName(req.Trigger), mode, req.Data.Len())

	start := time.Now()
	result, err := l.trainer.Train(ctx, TrainRequest{
		Current: current,
		Data:    req.Data,
		Full:    req.Full,
	})
	if err != nil {
		l.recordTraining(mode, domain.OutcomeTrained, time.Since(start), err)
		l.mu.Lock()
		l.lastError = err.Error()
		l.mu.Unlock()
		if current != nil {
			logger.Warn("Retrain failed, keeping model %s: %v", current.Version.ID, err)
		}
		return nil, err
	}
	l.recordTraining(result.Mode, result.Outcome, result.Duration, nil)

	if result.Outcome == domain.OutcomeTrained {
		l.publish(result.Model)
		l.mu.Lock()
		l.lastTrainedAt = time.Now()
		l.lastError = ""
		l.mu.Unlock()
	}
	return result, nil
}

// Predict scores one record with the published model.
func (l *Lifecycle) Predict(_ context.Context, rec domain.RawRecord) (*driving.Prediction, error) {
	artifact, err := l.CurrentModel()
	if err != nil {
		return nil, err
	}
	row, err := features.EncodeRecord(rec)
	if err != nil {
		return nil, err
	}
	return &driving.Prediction{
		Price:   artifact.Regressor.Predict(row),
		ModelID: artifact.Version.ID,
	}, nil
}

// Versions lists stored versions with their evaluation records.
func (l *Lifecycle) Versions(ctx context.Context) ([]driving.VersionInfo, error) {
	versions, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var currentID string
	if artifact := l.current.Load(); artifact != nil {
		currentID = artifact.Version.ID
	}

	infos := make([]driving.VersionInfo, 0, len(versions))
	for _, v := range versions {
		info := driving.VersionInfo{Version: v, Current: v.ID == currentID}
		rec, found, err := l.store.LoadEvaluation(ctx, v.ID)
		if err != nil {
			logger.Warn("Could not read evaluation of %s: %v", v.ID, err)
		} else if found {
			info.Evaluation = &rec
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// StartWatching starts the directory watcher in the background. Calling it
// while already watching is a no-op.
func (l *Lifecycle) StartWatching(ctx context.Context) error {
	if l.watcher == nil {
		return errNoWatcher
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dispatcher == nil {
		l.dispatcher = NewDispatcher(l.watcher, l.dataset, l, l.recorder, l.dispatch)
	}
	return l.dispatcher.Start(ctx)
}

// StopWatching stops the watcher. A retrain already started by the watcher
// runs to completion before StopWatching returns.
func (l *Lifecycle) StopWatching() error {
	l.mu.Lock()
	d := l.dispatcher
	l.mu.Unlock()

	if d == nil {
		return nil
	}
	return d.Stop()
}

// Status reports the lifecycle state.
func (l *Lifecycle) Status() driving.LifecycleStatus {
	status := driving.LifecycleStatus{
		Training: l.training.Load(),
		Watcher:  domain.WatcherIdle,
	}
	if artifact := l.current.Load(); artifact != nil {
		status.ModelID = artifact.Version.ID
		status.Metrics = artifact.Metrics
	}
	if l.watcher != nil {
		status.WatchDir = l.watcher.Root()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dispatcher != nil {
		status.Watcher = l.dispatcher.State()
	}
	status.LastTrainedAt = l.lastTrainedAt
	status.LastError = l.lastError
	return status
}

func (l *Lifecycle) acquire(ctx context.Context, noWait bool) error {
	if noWait {
		select {
		case l.slot <- struct{}{}:
		default:
			return domain.ErrTrainingInProgress
		}
	} else {
		select {
		case l.slot <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.training.Store(true)
	return nil
}

func (l *Lifecycle) release() {
	l.training.Store(false)
	<-l.slot
}

func (l *Lifecycle) publish(artifact *domain.ModelArtifact) {
	l.current.Store(artifact)
	if l.recorder != nil {
		l.recorder.ModelPublished(artifact.Version.ID, artifact.Metrics)
	}
}

func (l *Lifecycle) recordTraining(mode domain.TrainMode, outcome domain.TrainOutcome, elapsed time.Duration, err error) {
	if l.recorder != nil {
		l.recorder.TrainingFinished(mode, outcome, elapsed, err)
	}
}

func triggerName(trigger string) string {
	if trigger == "" {
		return "caller"
	}
	return trigger
}
