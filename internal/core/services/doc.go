// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Trainer fits and persists model versions, the Lifecycle owns the
// published model and serialises retrains, and the Dispatcher feeds watch
// events into the Lifecycle.
package services
