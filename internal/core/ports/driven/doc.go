// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Learner: Fits, warm-starts and (de)serialises regression models
//   - ModelStore: Versioned model and evaluation persistence
//   - DatasetReader: Loads CSV datasets with a schema check
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DirectoryWatcher: Emits file events. Without it, retraining is manual.
//   - MetricsRecorder: Observes training runs. Without it, nothing is exported.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or estimator package
package driven
