package driven

import (
	"time"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// MetricsRecorder observes training and watch activity.
type MetricsRecorder interface {
	// TrainingFinished records one training run. err is nil on success.
	TrainingFinished(mode domain.TrainMode, outcome domain.TrainOutcome, elapsed time.Duration, err error)

	// ModelPublished records the metrics of a newly published model.
	ModelPublished(version string, metrics *domain.Metrics)

	// WatchEvent records a watch event and what became of it.
	WatchEvent(kind domain.WatchEventKind, result string)
}
