package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

func TestModelsCmd_List(t *testing.T) {
	withSettings(t)
	withLifecycle(t, &mockLifecycle{versions: []driving.VersionInfo{
		{Version: domain.ModelVersion{ID: "20240101_000000"}},
		{
			Version:    domain.ModelVersion{ID: "20240102_000000"},
			Evaluation: &domain.EvaluationRecord{Metrics: domain.Metrics{RMSE: 500, MAE: 250, R2: 0.97}},
			Current:    true,
		},
	}})

	out, err := executeCommand(t, "models")

	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "20240101_000000")
	assert.Contains(t, out, "0.97")
}

func TestModelsCmd_Empty(t *testing.T) {
	withSettings(t)
	withLifecycle(t, &mockLifecycle{})

	out, err := executeCommand(t, "models", "--model-dir", "weights")

	require.NoError(t, err)
	assert.Contains(t, out, "No models in weights")
}

func TestModelsCurrentCmd(t *testing.T) {
	withSettings(t)

	t.Run("shows newest model", func(t *testing.T) {
		lc := &mockLifecycle{
			current:  testArtifact("20240102_000000"),
			versions: []driving.VersionInfo{{Version: domain.ModelVersion{ID: "20240102_000000"}}},
		}
		withLifecycle(t, lc)

		out, err := executeCommand(t, "models", "current")

		require.NoError(t, err)
		assert.Contains(t, out, "Model 20240102_000000")
		assert.Contains(t, out, "120")
	})

	t.Run("never trains", func(t *testing.T) {
		lc := &mockLifecycle{}
		withLifecycle(t, lc)

		_, err := executeCommand(t, "models", "current")

		assert.ErrorIs(t, err, domain.ErrNoModel)
		assert.Zero(t, lc.bootstraps)
	})
}
