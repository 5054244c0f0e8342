package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSchema indicates a dataset is missing required columns.
	// Fatal to that load, never to the process.
	ErrSchema = errors.New("schema error")

	// ErrShape indicates the evaluator was given sequences of different
	// lengths, or empty sequences.
	ErrShape = errors.New("shape mismatch")

	// ErrTrainingInProgress indicates a retrain was rejected because another
	// one is running. Callers should retry later.
	ErrTrainingInProgress = errors.New("training in progress")

	// ErrStoreIO indicates a model store read or write failed.
	// The previously published model stays valid.
	ErrStoreIO = errors.New("model store I/O error")

	// ErrNoModel indicates no model has been published yet.
	ErrNoModel = errors.New("no model available")

	// ErrWatcherClosed indicates the directory watcher has been closed.
	ErrWatcherClosed = errors.New("watcher closed")
)

// SchemaError lists the required columns absent from a dataset.
// It matches ErrSchema with errors.Is.
type SchemaError struct {
	Missing []string
}

// Error implements error.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing columns [%s]", ErrSchema, strings.Join(e.Missing, ", "))
}

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
