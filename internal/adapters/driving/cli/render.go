package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Width(18)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

// renderModel describes one published model.
func renderModel(artifact *domain.ModelArtifact) string {
	lines := []string{
		titleStyle.Render("Model " + artifact.Version.ID),
		field("Path", artifact.Version.Path),
	}
	if artifact.Regressor != nil {
		lines = append(lines, field("Rounds", strconv.Itoa(artifact.Regressor.Rounds())))
	}
	lines = append(lines, renderMetrics(artifact.Metrics))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderMetrics shows a holdout evaluation.
func renderMetrics(m *domain.Metrics) string {
	if m == nil {
		return field("Evaluation", warningStyle.Render("(not recorded)"))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		field("RMSE", formatFloat(m.RMSE)),
		field("MAE", formatFloat(m.MAE)),
		field("R-squared", formatFloat(m.R2)),
	)
}

// renderTrainResult summarises a training run.
func renderTrainResult(result *domain.TrainResult) string {
	if result.Outcome == domain.OutcomeNoOp {
		return warningStyle.Render("Nothing to train on; model unchanged.")
	}
	lines := []string{
		successStyle.Render(fmt.Sprintf("Trained %s model in %s",
			result.Mode, result.Duration.Round(time.Millisecond))),
		field("Rows", strconv.Itoa(result.Stats.Kept)),
	}
	if dropped := result.Stats.Dropped(); dropped > 0 {
		lines = append(lines, field("Dropped", strconv.Itoa(dropped)))
	}
	if result.Model != nil {
		lines = append(lines, "", renderModel(result.Model))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderVersions lays stored versions out as a table.
func renderVersions(versions []driving.VersionInfo) string {
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		row := []string{v.Version.ID, "-", "-", "-", ""}
		if v.Evaluation != nil {
			m := v.Evaluation.Metrics
			row[1] = formatFloat(m.RMSE)
			row[2] = formatFloat(m.MAE)
			row[3] = formatFloat(m.R2)
		}
		if v.Current {
			row[4] = "*"
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("VERSION", "RMSE", "MAE", "R-SQUARED", "CURRENT").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// renderSettings shows resolved settings by section.
func renderSettings(s *domain.AppSettings, path string) string {
	var b strings.Builder
	section := func(name string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render("["+name+"]") + "\n")
	}
	line := func(label, value string) {
		b.WriteString("  " + field(label, value) + "\n")
	}
	seed := "random"
	if s.Training.Seed != 0 {
		seed = strconv.FormatUint(s.Training.Seed, 10)
	}
	metricsAddr := s.Metrics.Addr
	if metricsAddr == "" {
		metricsAddr = "(disabled)"
	}

	section("paths")
	line("watch_dir", s.Paths.WatchDir)
	line("model_dir", s.Paths.ModelDir)
	line("base_dataset", s.Paths.BaseDataset)
	section("output")
	line("print_evaluation", strconv.FormatBool(s.Output.PrintEvaluation))
	section("training")
	line("seed", seed)
	line("test_fraction", formatFloat(s.Training.TestFraction))
	line("rounds", strconv.Itoa(s.Training.Rounds))
	line("max_depth", strconv.Itoa(s.Training.MaxDepth))
	line("learning_rate", formatFloat(s.Training.LearningRate))
	line("lambda", formatFloat(s.Training.Lambda))
	line("min_child_weight", formatFloat(s.Training.MinChildWeight))
	line("max_bins", strconv.Itoa(s.Training.MaxBins))
	section("watch")
	line("debounce", s.Watch.Debounce.String())
	line("min_interval", s.Watch.MinInterval.String())
	section("metrics")
	line("addr", metricsAddr)
	b.WriteString("\nConfig file: " + path + "\n")
	return b.String()
}
