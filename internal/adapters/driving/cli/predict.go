package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/carat/internal/core/domain"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the price of a diamond",
	Long: `Predict the price of one diamond with the newest model.

Example:
  carat predict --carat 0.7 --cut Ideal --color G --clarity VS1 \
    --depth 61.5 --table 55 --x 5.7 --y 5.7 --z 3.5`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.String("cut", "", "cut grade (Ideal, Premium, Very Good, Good, Fair)")
	f.String("color", "", "colour grade (D to J)")
	f.String("clarity", "", "clarity grade (IF, VVS1, VVS2, VS1, VS2, SI1, SI2, I1)")
	for _, name := range []string{"carat", "depth", "table", "x", "y", "z"} {
		f.Float64(name, math.NaN(), name)
	}
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, _ []string) error {
	rec, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}

	a, _, err := openApp(nil)
	if err != nil {
		return err
	}
	if _, err := a.lifecycle.Bootstrap(cmd.Context()); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	prediction, err := a.lifecycle.Predict(cmd.Context(), rec)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	cmd.Printf("Predicted price: %.2f (model %s)\n", prediction.Price, prediction.ModelID)
	return nil
}

func recordFromFlags(cmd *cobra.Command) (domain.RawRecord, error) {
	f := cmd.Flags()
	rec := domain.RawRecord{Price: math.NaN()}

	var err error
	if rec.Cut, err = f.GetString("cut"); err != nil {
		return rec, err
	}
	if rec.Color, err = f.GetString("color"); err != nil {
		return rec, err
	}
	if rec.Clarity, err = f.GetString("clarity"); err != nil {
		return rec, err
	}

	numeric := []struct {
		name string
		dst  *float64
	}{
		{"carat", &rec.Carat},
		{"depth", &rec.Depth},
		{"table", &rec.Table},
		{"x", &rec.X},
		{"y", &rec.Y},
		{"z", &rec.Z},
	}
	var missing []string
	for _, n := range numeric {
		if *n.dst, err = f.GetFloat64(n.name); err != nil {
			return rec, err
		}
		if !f.Changed(n.name) {
			missing = append(missing, "--"+n.name)
		}
	}
	for _, c := range []struct{ name, value string }{
		{"--cut", rec.Cut}, {"--color", rec.Color}, {"--clarity", rec.Clarity},
	} {
		if c.value == "" {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return rec, fmt.Errorf("%w: missing %v", domain.ErrInvalidInput, missing)
	}
	return rec, nil
}
