// Package env overlays CARAT_* environment variables onto settings.
package env

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// Prefix is prepended to every variable name, e.g. CARAT_PATHS_MODEL_DIR.
const Prefix = "CARAT"

// Overlay replaces fields of s that have a matching environment variable.
// Unset variables leave the field untouched.
func Overlay(s *domain.AppSettings) error {
	if err := envconfig.Process(Prefix, s); err != nil {
		return fmt.Errorf("%w: environment: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// Usage writes the recognised variables to stdout as a table.
func Usage() error {
	var s domain.AppSettings
	return envconfig.Usage(Prefix, &s)
}
