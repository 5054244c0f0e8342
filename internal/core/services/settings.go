package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyWatchDir        = "paths.watch_dir"
	keyModelDir        = "paths.model_dir"
	keyBaseDataset     = "paths.base_dataset"
	keyPrintEvaluation = "output.print_evaluation"
	keySeed            = "training.seed"
	keyTestFraction    = "training.test_fraction"
	keyRounds          = "training.rounds"
	keyMaxDepth        = "training.max_depth"
	keyLearningRate    = "training.learning_rate"
	keyLambda          = "training.lambda"
	keyMinChildWeight  = "training.min_child_weight"
	keyMaxBins         = "training.max_bins"
	keyDebounce        = "watch.debounce"
	keyMinInterval     = "watch.min_interval"
	keyMetricsAddr     = "metrics.addr"
)

type keyKind int

const (
	kindString keyKind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
)

// settingKeys lists every settable key in display order.
var settingKeys = []struct {
	key  string
	kind keyKind
}{
	{keyWatchDir, kindString},
	{keyModelDir, kindString},
	{keyBaseDataset, kindString},
	{keyPrintEvaluation, kindBool},
	{keySeed, kindInt},
	{keyTestFraction, kindFloat},
	{keyRounds, kindInt},
	{keyMaxDepth, kindInt},
	{keyLearningRate, kindFloat},
	{keyLambda, kindFloat},
	{keyMinChildWeight, kindFloat},
	{keyMaxBins, kindInt},
	{keyDebounce, kindDuration},
	{keyMinInterval, kindDuration},
	{keyMetricsAddr, kindString},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Keys missing from the store
// take their default.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Paths: domain.PathSettings{
			WatchDir:    s.getString(keyWatchDir, d.Paths.WatchDir),
			ModelDir:    s.getString(keyModelDir, d.Paths.ModelDir),
			BaseDataset: s.getString(keyBaseDataset, d.Paths.BaseDataset),
		},
		Output: domain.OutputSettings{
			PrintEvaluation: s.getBool(keyPrintEvaluation, d.Output.PrintEvaluation),
		},
		Training: domain.TrainingSettings{
			Seed:           uint64(s.getInt(keySeed, int(d.Training.Seed))),
			TestFraction:   s.getFloat(keyTestFraction, d.Training.TestFraction),
			Rounds:         s.getInt(keyRounds, d.Training.Rounds),
			MaxDepth:       s.getInt(keyMaxDepth, d.Training.MaxDepth),
			LearningRate:   s.getFloat(keyLearningRate, d.Training.LearningRate),
			Lambda:         s.getFloat(keyLambda, d.Training.Lambda),
			MinChildWeight: s.getFloat(keyMinChildWeight, d.Training.MinChildWeight),
			MaxBins:        s.getInt(keyMaxBins, d.Training.MaxBins),
		},
		Watch: domain.WatchSettings{
			Debounce:    s.getDuration(keyDebounce, d.Watch.Debounce),
			MinInterval: s.getDuration(keyMinInterval, d.Watch.MinInterval),
		},
		Metrics: domain.MetricsSettings{
			Addr: s.getString(keyMetricsAddr, d.Metrics.Addr),
		},
	}

	return settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	values := map[string]any{
		keyWatchDir:        settings.Paths.WatchDir,
		keyModelDir:        settings.Paths.ModelDir,
		keyBaseDataset:     settings.Paths.BaseDataset,
		keyPrintEvaluation: settings.Output.PrintEvaluation,
		keySeed:            int64(settings.Training.Seed),
		keyTestFraction:    settings.Training.TestFraction,
		keyRounds:          int64(settings.Training.Rounds),
		keyMaxDepth:        int64(settings.Training.MaxDepth),
		keyLearningRate:    settings.Training.LearningRate,
		keyLambda:          settings.Training.Lambda,
		keyMinChildWeight:  settings.Training.MinChildWeight,
		keyMaxBins:         int64(settings.Training.MaxBins),
		keyDebounce:        settings.Watch.Debounce.String(),
		keyMinInterval:     settings.Watch.MinInterval.String(),
		keyMetricsAddr:     settings.Metrics.Addr,
	}
	for _, k := range settingKeys {
		if err := s.configStore.Set(k.key, values[k.key]); err != nil {
			return fmt.Errorf("failed to set %s: %w", k.key, err)
		}
	}

	return s.configStore.Save()
}

// Set parses value according to the key's type, checks the resulting
// settings are valid and persists the key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := kindOf(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	applyValue(settings, key, parsed)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return s.configStore.Save()
}

// Keys lists the settable keys.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns the config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func kindOf(key string) (keyKind, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.kind, true
		}
	}
	return 0, false
}

func parseValue(kind keyKind, value string) (any, error) {
	switch kind {
	case kindBool:
		return strconv.ParseBool(value)
	case kindInt:
		return strconv.ParseInt(value, 10, 64)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

// applyValue writes a parsed value into the matching settings field.
func applyValue(s *domain.AppSettings, key string, v any) {
	switch key {
	case keyWatchDir:
		s.Paths.WatchDir = v.(string)
	case keyModelDir:
		s.Paths.ModelDir = v.(string)
	case keyBaseDataset:
		s.Paths.BaseDataset = v.(string)
	case keyPrintEvaluation:
		s.Output.PrintEvaluation = v.(bool)
	case keySeed:
		s.Training.Seed = uint64(v.(int64))
	case keyTestFraction:
		s.Training.TestFraction = v.(float64)
	case keyRounds:
		s.Training.Rounds = int(v.(int64))
	case keyMaxDepth:
		s.Training.MaxDepth = int(v.(int64))
	case keyLearningRate:
		s.Training.LearningRate = v.(float64)
	case keyLambda:
		s.Training.Lambda = v.(float64)
	case keyMinChildWeight:
		s.Training.MinChildWeight = v.(float64)
	case keyMaxBins:
		s.Training.MaxBins = int(v.(int64))
	case keyDebounce:
		s.Watch.Debounce, _ = time.ParseDuration(v.(string))
	case keyMinInterval:
		s.Watch.MinInterval, _ = time.ParseDuration(v.(string))
	case keyMetricsAddr:
		s.Metrics.Addr = v.(string)
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, exists := s.configStore.Get(key); !exists || v == nil {
		return defaultVal
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, exists := s.configStore.Get(key); !exists || v == nil {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, exists := s.configStore.Get(key); !exists || v == nil {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if v, exists := s.configStore.Get(key); !exists || v == nil {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
