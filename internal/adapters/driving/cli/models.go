package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/carat/internal/core/domain"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List stored model versions",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the newest model and its evaluation",
	Args:  cobra.NoArgs,
	RunE:  runModelsCurrent,
}

func init() {
	modelsCmd.AddCommand(modelsCurrentCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	a, settings, err := openApp(nil)
	if err != nil {
		return err
	}
	versions, err := a.lifecycle.Versions(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(versions) == 0 {
		cmd.Printf("No models in %s. Run 'carat train' to create one.\n", settings.Paths.ModelDir)
		return nil
	}
	cmd.Println(renderVersions(versions))
	return nil
}

// runModelsCurrent loads the newest stored model without training one.
func runModelsCurrent(cmd *cobra.Command, _ []string) error {
	a, settings, err := openApp(nil)
	if err != nil {
		return err
	}
	versions, err := a.lifecycle.Versions(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(versions) == 0 {
		return fmt.Errorf("%w in %s", domain.ErrNoModel, settings.Paths.ModelDir)
	}

	artifact, err := a.lifecycle.Bootstrap(cmd.Context())
	if err != nil {
		return fmt.Errorf("load newest model: %w", err)
	}
	cmd.Println(renderModel(artifact))
	return nil
}
