// Package cli implements carat's command line interface.
package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/carat/internal/adapters/driven/config/env"
	"github.com/custodia-labs/carat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/carat/internal/adapters/driven/dataset/csvfile"
	"github.com/custodia-labs/carat/internal/adapters/driven/metrics"
	"github.com/custodia-labs/carat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/carat/internal/adapters/driven/storage/modelfs"
	"github.com/custodia-labs/carat/internal/connectors/filesystem"
	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
	"github.com/custodia-labs/carat/internal/core/services"
	"github.com/custodia-labs/carat/internal/gbm"
	"github.com/custodia-labs/carat/internal/logger"
)

var (
	version = "dev"

	verbose   bool
	configDir string
	noConfig  bool

	// Path overrides; empty means use settings.
	flagWatchDir    string
	flagModelDir    string
	flagBaseDataset string
)

// Services used by commands. Tests replace them with mocks.
var (
	settingsService driving.SettingsService

	// newApp builds the lifecycle manager from resolved settings.
	newApp = buildApp
)

// app is the wired lifecycle manager and its metrics endpoint.
type app struct {
	lifecycle driving.ModelLifecycle
	metrics   http.Handler
}

var rootCmd = &cobra.Command{
	Use:   "carat",
	Short: "Retrain and serve a diamond price model",
	Long: `carat keeps a diamond price regression model up to date.

It trains a model from a base dataset, continues training it on new CSV
files dropped into a watched directory, and keeps every version with its
holdout evaluation under the model directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.carat)")
	flags.BoolVar(&noConfig, "no-config", false, "ignore the configuration file")
	flags.StringVar(&flagWatchDir, "watch-dir", "", "directory watched for new datasets")
	flags.StringVar(&flagModelDir, "model-dir", "", "directory holding model versions")
	flags.StringVar(&flagBaseDataset, "base-dataset", "", "dataset fresh models are trained on")
}

// Execute runs the root command with the given build version.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}

func initServices(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if settingsService != nil {
		return nil
	}

	var store driven.ConfigStore
	if noConfig {
		store = memory.NewConfigStore()
	} else {
		fileStore, err := file.NewConfigStore(configDir)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		store = fileStore
	}
	settingsService = services.NewSettingsService(store)
	return nil
}

// resolveSettings layers environment variables and flags over stored
// settings.
func resolveSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := env.Overlay(settings); err != nil {
		return nil, err
	}
	if flagWatchDir != "" {
		settings.Paths.WatchDir = flagWatchDir
	}
	if flagModelDir != "" {
		settings.Paths.ModelDir = flagModelDir
	}
	if flagBaseDataset != "" {
		settings.Paths.BaseDataset = flagBaseDataset
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return settings, nil
}

// openApp resolves settings and builds the lifecycle manager.
func openApp(approve services.ApproveFunc) (*app, *domain.AppSettings, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(settings, approve)
	if err != nil {
		return nil, nil, err
	}
	return a, settings, nil
}

func buildApp(settings *domain.AppSettings, approve services.ApproveFunc) (*app, error) {
	t := settings.Training
	learner, err := gbm.NewLearner(gbm.Params{
		Rounds:         t.Rounds,
		MaxDepth:       t.MaxDepth,
		LearningRate:   t.LearningRate,
		Lambda:         t.Lambda,
		MinChildWeight: t.MinChildWeight,
		MaxBins:        t.MaxBins,
	})
	if err != nil {
		return nil, err
	}

	store := modelfs.NewStore(settings.Paths.ModelDir)
	reader := csvfile.NewReader()
	recorder := metrics.NewRecorder()

	trainer := services.NewTrainer(learner, store, reader, services.TrainerConfig{
		BaseDataset:     settings.Paths.BaseDataset,
		Seed:            t.Seed,
		TestFraction:    t.TestFraction,
		PrintEvaluation: settings.Output.PrintEvaluation,
	})
	logger.Debug("split seed %d", trainer.Seed())

	var watcher driven.DirectoryWatcher
	if settings.Paths.WatchDir != "" {
		watcher = filesystem.New(settings.Paths.WatchDir, settings.Watch.Debounce)
	}

	lifecycle := services.NewLifecycle(trainer, learner, store, reader, watcher, recorder, services.DispatcherConfig{
		MinInterval: settings.Watch.MinInterval,
		Approve:     approve,
	})
	return &app{lifecycle: lifecycle, metrics: recorder.Handler()}, nil
}
