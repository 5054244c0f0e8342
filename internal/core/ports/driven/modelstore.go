package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// ModelStore persists model versions and their evaluation records.
// Saved versions are never modified or overwritten.
type ModelStore interface {
	// Latest returns the newest saved model.
	// ok is false when no model has been saved yet; that is not an error.
	Latest(ctx context.Context) (model domain.StoredModel, ok bool, err error)

	// Load returns the model with the given version id.
	// Returns domain.ErrNotFound if it does not exist.
	Load(ctx context.Context, id string) (domain.StoredModel, error)

	// List returns every saved version, oldest first.
	List(ctx context.Context) ([]domain.ModelVersion, error)

	// Save atomically writes a new version created at createdAt.
	// Readers never observe a partially written file.
	Save(ctx context.Context, createdAt time.Time, payload []byte) (domain.ModelVersion, error)

	// SaveEvaluation writes the evaluation record of a version and returns
	// its path.
	SaveEvaluation(ctx context.Context, rec domain.EvaluationRecord) (string, error)

	// LoadEvaluation reads the evaluation record of a version.
	// ok is false when the version has no record.
	LoadEvaluation(ctx context.Context, id string) (rec domain.EvaluationRecord, ok bool, err error)

	// Dir returns the store directory.
	Dir() string
}
