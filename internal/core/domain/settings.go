package domain

import (
	"errors"
	"fmt"
	"time"
)

// AppSettings holds carat's configuration.
// Field names double as environment overrides, e.g. Paths.WatchDir is
// CARAT_PATHS_WATCH_DIR.
type AppSettings struct {
	Paths    PathSettings
	Output   OutputSettings
	Training TrainingSettings
	Watch    WatchSettings
	Metrics  MetricsSettings
}

// PathSettings locates the watched directory, model store and base dataset.
type PathSettings struct {
	WatchDir    string `split_words:"true"`
	ModelDir    string `split_words:"true"`
	BaseDataset string `split_words:"true"`
}

// OutputSettings controls operator console output.
type OutputSettings struct {
	// PrintEvaluation emits an evaluation summary after every training run.
	PrintEvaluation bool `split_words:"true"`
}

// TrainingSettings configures the split and the estimator.
type TrainingSettings struct {
	// Seed fixes the train/test split. Zero draws a random seed once per
	// process.
	Seed uint64 `split_words:"true"`

	// TestFraction is the share of the base dataset held out.
	TestFraction float64 `split_words:"true"`

	Rounds         int     `split_words:"true"`
	MaxDepth       int     `split_words:"true"`
	LearningRate   float64 `split_words:"true"`
	Lambda         float64 `split_words:"true"`
	MinChildWeight float64 `split_words:"true"`
	MaxBins        int     `split_words:"true"`
}

// WatchSettings tunes the directory watcher.
type WatchSettings struct {
	// Debounce coalesces bursts of events for the same file.
	Debounce time.Duration `split_words:"true"`

	// MinInterval is the minimum spacing between watcher-triggered retrains.
	MinInterval time.Duration `split_words:"true"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `split_words:"true"`
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Paths: PathSettings{
			WatchDir:    "datasets",
			ModelDir:    "model_weights",
			BaseDataset: "datasets/diamonds/diamonds.csv",
		},
		Output: OutputSettings{
			PrintEvaluation: true,
		},
		Training: TrainingSettings{
			TestFraction:   0.3,
			Rounds:         100,
			MaxDepth:       6,
			LearningRate:   0.3,
			Lambda:         1,
			MinChildWeight: 1,
			MaxBins:        256,
		},
		Watch: WatchSettings{
			Debounce:    500 * time.Millisecond,
			MinInterval: time.Second,
		},
	}
}

// Validate checks the settings are usable.
func (s AppSettings) Validate() error {
	var errs []error
	if s.Paths.ModelDir == "" {
		errs = append(errs, errors.New("paths.model_dir must not be empty"))
	}
	if s.Paths.BaseDataset == "" {
		errs = append(errs, errors.New("paths.base_dataset must not be empty"))
	}
	t := s.Training
	if !(t.TestFraction > 0 && t.TestFraction < 1) {
		errs = append(errs, fmt.Errorf("training.test_fraction must be in (0, 1), got %v", t.TestFraction))
	}
	if t.Rounds < 1 {
		errs = append(errs, fmt.Errorf("training.rounds must be >= 1, got %d", t.Rounds))
	}
	if t.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("training.max_depth must be >= 1, got %d", t.MaxDepth))
	}
	if !(t.LearningRate > 0) {
		errs = append(errs, fmt.Errorf("training.learning_rate must be > 0, got %v", t.LearningRate))
	}
	if t.Lambda < 0 {
		errs = append(errs, fmt.Errorf("training.lambda must be >= 0, got %v", t.Lambda))
	}
	if t.MinChildWeight < 0 {
		errs = append(errs, fmt.Errorf("training.min_child_weight must be >= 0, got %v", t.MinChildWeight))
	}
	if t.MaxBins < 2 || t.MaxBins > 65535 {
		errs = append(errs, fmt.Errorf("training.max_bins must be in [2, 65535], got %d", t.MaxBins))
	}
	if s.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be >= 0, got %s", s.Watch.Debounce))
	}
	if s.Watch.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("watch.min_interval must be >= 0, got %s", s.Watch.MinInterval))
	}
	return errors.Join(errs...)
}
