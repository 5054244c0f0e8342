// Package domain defines the core business entities for carat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawRecord / RawTable: diamond rows as loaded from a CSV file
//   - FeatureSet: ordinal-encoded feature matrix plus target vector
//   - ModelArtifact: an immutable trained regressor and its version
//   - EvaluationRecord: holdout metrics for one model version
//   - WatchEvent: a file signal from the watched data directory
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
