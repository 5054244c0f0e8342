package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// ModelLifecycle owns the published model and every way of replacing it.
// Front-ends (CLI, MCP) only read the current model, request retrains and
// render the results.
type ModelLifecycle interface {
	// Bootstrap publishes the newest stored model, or trains one from the
	// base dataset when the store is empty.
	Bootstrap(ctx context.Context) (*domain.ModelArtifact, error)

	// CurrentModel returns a snapshot of the published model.
	// Returns domain.ErrNoModel before Bootstrap succeeds.
	CurrentModel() (*domain.ModelArtifact, error)

	// RequestRetrain trains a new version and publishes it on success.
	// On failure the previously published model stays in use.
	RequestRetrain(ctx context.Context, req RetrainRequest) (*domain.TrainResult, error)

	// Predict scores one record with the published model.
	Predict(ctx context.Context, rec domain.RawRecord) (*Prediction, error)

	// Versions lists stored model versions, oldest first.
	Versions(ctx context.Context) ([]VersionInfo, error)

	// StartWatching starts the background directory watcher.
	// It returns once the watcher is running.
	StartWatching(ctx context.Context) error

	// StopWatching stops the watcher, letting an in-flight retrain finish.
	StopWatching() error

	// Status reports the lifecycle state.
	Status() LifecycleStatus
}

// RetrainRequest asks for a new model version.
type RetrainRequest struct {
	// Data is new labelled data. Nil trains on the base dataset only.
	Data *domain.RawTable

	// DataPath is read as Data when Data is nil.
	DataPath string

	// Full refits from the base dataset instead of warm-starting.
	Full bool

	// NoWait rejects the request with domain.ErrTrainingInProgress instead
	// of waiting for a running retrain to finish.
	NoWait bool

	// Trigger names the caller in logs, e.g. "cli" or "watcher".
	Trigger string
}

// Prediction is the output of Predict.
type Prediction struct {
	Price   float64
	ModelID string
}

// VersionInfo describes one stored version.
type VersionInfo struct {
	Version domain.ModelVersion

	// Evaluation is nil when the version has no record.
	Evaluation *domain.EvaluationRecord

	// Current is true for the published version.
	Current bool
}

// LifecycleStatus is a point-in-time view of the lifecycle manager.
type LifecycleStatus struct {
	// ModelID is the published version, empty before bootstrap.
	ModelID string

	// Metrics is the published model's evaluation, if known.
	Metrics *domain.Metrics

	// Training is true while a retrain runs.
	Training bool

	// Watcher is the directory watcher state.
	Watcher domain.WatcherState

	// WatchDir is the watched directory.
	WatchDir string

	// LastTrainedAt is when the last successful retrain finished.
	LastTrainedAt time.Time

	// LastError is the most recent retrain failure, cleared on success.
	LastError string
}
