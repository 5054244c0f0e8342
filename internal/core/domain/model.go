package domain

import "time"

// VersionLayout formats the creation timestamp embedded in a version id.
// Lexicographic order of ids equals chronological order.
const VersionLayout = "20060102_150405"

// Regressor is a trained model able to score an encoded feature vector.
// Implementations are immutable once trained.
type Regressor interface {
	// Predict returns the predicted price for one feature vector.
	Predict(features []float64) float64

	// Rounds returns the number of boosting rounds in the model.
	Rounds() int
}

// ModelVersion identifies one persisted model.
type ModelVersion struct {
	// ID is the version id, e.g. 20240102_000000 or 20240102_000000_01.
	ID string

	// CreatedAt is when training finished.
	CreatedAt time.Time

	// Path is the model file location.
	Path string
}

// ModelArtifact is a trained regressor together with its version.
// It is never mutated; retraining produces a new artifact.
type ModelArtifact struct {
	Version   ModelVersion
	Regressor Regressor

	// Metrics is the holdout evaluation, if known.
	Metrics *Metrics
}

// StoredModel is a model read back from the store.
type StoredModel struct {
	Version ModelVersion
	Payload []byte
}
