package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
	"github.com/custodia-labs/carat/internal/logger"
)

// Results recorded for each watch event.
const (
	watchTrained     = "trained"
	watchNoOp        = "no-op"
	watchDeclined    = "declined"
	watchSchemaError = "schema_error"
	watchReadError   = "read_error"
	watchTrainError  = "train_error"
	watchCancelled   = "cancelled"
)

// ApproveFunc asks whether a file should be trained on.
type ApproveFunc func(path string) bool

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// MinInterval is the minimum spacing between dispatches. Zero disables
	// spacing.
	MinInterval time.Duration

	// Approve, when set, is asked before each file is trained on.
	Approve ApproveFunc
}

// retrainer is the part of the lifecycle manager the dispatcher drives.
type retrainer interface {
	RequestRetrain(ctx context.Context, req driving.RetrainRequest) (*domain.TrainResult, error)
}

// Dispatcher turns watch events into incremental retrains, one at a time.
//
// States move Idle -> Watching -> Dispatching -> Watching, and to Stopped
// from any state. Stopped is final. Failures of a single dispatch are
// logged and never stop the loop.
type Dispatcher struct {
	watcher  driven.DirectoryWatcher
	dataset  driven.DatasetReader
	target   retrainer
	recorder driven.MetricsRecorder
	limiter  *rate.Limiter
	approve  ApproveFunc

	mu     sync.Mutex
	state  domain.WatcherState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(
	watcher driven.DirectoryWatcher,
	dataset driven.DatasetReader,
	target retrainer,
	recorder driven.MetricsRecorder,
	config DispatcherConfig,
) *Dispatcher {
	d := &Dispatcher{
		watcher:  watcher,
		dataset:  dataset,
		target:   target,
		recorder: recorder,
		approve:  config.Approve,
		state:    domain.WatcherIdle,
	}
	if config.MinInterval > 0 {
		d.limiter = rate.NewLimiter(rate.Every(config.MinInterval), 1)
	}
	return d
}

// Start begins watching and returns once events are being received.
// Calling Start on a running dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case domain.WatcherWatching, domain.WatcherDispatching:
		return nil
	case domain.WatcherStopped:
		return domain.ErrWatcherClosed
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := d.watcher.Watch(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start watcher: %w", err)
	}

	d.cancel = cancel
	d.state = domain.WatcherWatching
	d.wg.Add(1)
	go d.run(runCtx, events)

	logger.Info("Watching directory %s for file modifications...", d.watcher.Root())
	return nil
}

// Stop stops watching. A dispatch in progress runs to completion first.
// Stop is safe to call more than once.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.state == domain.WatcherStopped {
		d.mu.Unlock()
		return nil
	}
	d.state = domain.WatcherStopped
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()

	logger.Info("Stopped watching %s", d.watcher.Root())
	return d.watcher.Close()
}

// State returns the current state.
func (d *Dispatcher) State() domain.WatcherState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// setState moves to s unless the dispatcher has been stopped.
func (d *Dispatcher) setState(s domain.WatcherState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != domain.WatcherStopped {
		d.state = s
	}
}

func (d *Dispatcher) run(ctx context.Context, events <-chan domain.WatchEvent) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.setState(domain.WatcherDispatching)
			d.dispatch(ctx, ev)
			d.setState(domain.WatcherWatching)
		}
	}
}

// dispatch handles one event. It never returns an error; every failure is
// logged and recorded.
func (d *Dispatcher) dispatch(ctx context.Context, ev domain.WatchEvent) {
	log := logger.WithFields(logger.Fields{"path": ev.Path, "event": ev.Kind})
	result := watchTrainError
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Dispatch panicked: %v", r)
			result = watchTrainError
		}
		d.record(ev.Kind, result)
	}()

	log.Info("File event detected")

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			result = watchCancelled
			return
		}
	}

	if d.approve != nil && !d.approve(ev.Path) {
		log.Info("Retrain declined")
		result = watchDeclined
		return
	}

	table, err := d.dataset.ReadFile(ctx, ev.Path)
	if err != nil {
		if errors.Is(err, domain.ErrSchema) {
			log.Warnf("The columns do not match the expected ones: %v", err)
			result = watchSchemaError
		} else {
			log.Warnf("Could not read file: %v", err)
			result = watchReadError
		}
		return
	}

	// Once started, a retrain finishes even if the dispatcher is stopped.
	res, err := d.target.RequestRetrain(context.WithoutCancel(ctx), driving.RetrainRequest{
		Data:    table,
		Trigger: "watcher",
	})
	if err != nil {
		log.Errorf("Retrain failed: %v", err)
		result = watchTrainError
		return
	}

	if res.Outcome == domain.OutcomeNoOp {
		log.Info("File had no usable rows; model unchanged")
		result = watchNoOp
		return
	}
	log.WithField("model", res.Model.Version.ID).Info("Model retrained")
	result = watchTrained
}

func (d *Dispatcher) record(kind domain.WatchEventKind, result string) {
	if d.recorder != nil {
		d.recorder.WatchEvent(kind, result)
	}
}
