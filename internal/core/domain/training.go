package domain

import "time"

// TrainMode says how a model version was produced.
type TrainMode string

// Training modes.
const (
	// TrainFresh fits a new model on the base dataset.
	TrainFresh TrainMode = "fresh"

	// TrainIncremental continues boosting an existing model on new data.
	TrainIncremental TrainMode = "incremental"
)

// TrainOutcome says whether a retrain produced a new version.
type TrainOutcome string

// Training outcomes.
const (
	// OutcomeTrained means a new version was fitted and persisted.
	OutcomeTrained TrainOutcome = "trained"

	// OutcomeNoOp means there was nothing to train on; the current model is
	// returned unchanged and nothing is written.
	OutcomeNoOp TrainOutcome = "no-op"
)

// TrainResult describes one training run.
type TrainResult struct {
	// RunID identifies the run in logs.
	RunID string

	Mode    TrainMode
	Outcome TrainOutcome

	// Model is the new artifact, or the unchanged current one on no-op.
	Model *ModelArtifact

	// Metrics is the holdout evaluation of Model. Zero on no-op.
	Metrics Metrics

	// Stats describes the encoding of the data the run trained on.
	Stats EncodeStats

	// EvaluationPath is where the evaluation record was written.
	EvaluationPath string

	Duration time.Duration
}
