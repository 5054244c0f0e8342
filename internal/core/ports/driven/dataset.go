package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// DatasetReader loads diamond datasets.
// Both methods fail with a *domain.SchemaError when required columns are
// absent; row-level problems are left to the encoder.
type DatasetReader interface {
	// ReadFile loads the dataset at path.
	ReadFile(ctx context.Context, path string) (*domain.RawTable, error)

	// Read loads a dataset from r. source names it in logs and errors.
	Read(ctx context.Context, r io.Reader, source string) (*domain.RawTable, error)
}
