package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a new model version",
	Long: `Train a new model version and store it with its evaluation.

Without flags the newest stored model is loaded, or a model is trained from
the base dataset when none exists.

  --data FILE   continue the current model on the diamonds in FILE
  --full        refit from the base dataset (and then FILE, if given)`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().String("data", "", "CSV file with new labelled diamonds")
	trainCmd.Flags().Bool("full", false, "refit from the base dataset")
	trainCmd.Flags().Bool("no-wait", false, "fail instead of waiting for a running retrain")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	dataPath, err := cmd.Flags().GetString("data")
	if err != nil {
		return fmt.Errorf("getting data flag: %w", err)
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return fmt.Errorf("getting full flag: %w", err)
	}
	noWait, err := cmd.Flags().GetBool("no-wait")
	if err != nil {
		return fmt.Errorf("getting no-wait flag: %w", err)
	}

	a, _, err := openApp(nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// A full retrain needs no current model.
	if !full {
		artifact, err := a.lifecycle.Bootstrap(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		if dataPath == "" {
			cmd.Println(renderModel(artifact))
			return nil
		}
	}

	result, err := a.lifecycle.RequestRetrain(ctx, driving.RetrainRequest{
		DataPath: dataPath,
		Full:     full,
		NoWait:   noWait,
		Trigger:  "cli",
	})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	cmd.Println(renderTrainResult(result))
	return nil
}
