package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

func trainedResult(id string) *domain.TrainResult {
	return &domain.TrainResult{
		Mode:     domain.TrainIncremental,
		Outcome:  domain.OutcomeTrained,
		Model:    testArtifact(id),
		Stats:    domain.EncodeStats{Kept: 90, DroppedPrice: 3},
		Duration: 1200 * time.Millisecond,
	}
}

func TestTrainCmd_BootstrapOnly(t *testing.T) {
	withSettings(t)
	lc := &mockLifecycle{current: testArtifact("20240102_000000")}
	withLifecycle(t, lc)

	out, err := executeCommand(t, "train")

	require.NoError(t, err)
	assert.Equal(t, 1, lc.bootstraps)
	assert.Empty(t, lc.retrains)
	assert.Contains(t, out, "20240102_000000")
	assert.Contains(t, out, "512.5")
}

func TestTrainCmd_IncrementalOnData(t *testing.T) {
	withSettings(t)
	lc := &mockLifecycle{current: testArtifact("20240102_000000"), result: trainedResult("20240103_000000")}
	withLifecycle(t, lc)

	out, err := executeCommand(t, "train", "--data", "datasets/new.csv", "--no-wait")

	require.NoError(t, err)
	assert.Equal(t, 1, lc.bootstraps)
	require.Len(t, lc.retrains, 1)
	assert.Equal(t, driving.RetrainRequest{DataPath: "datasets/new.csv", NoWait: true, Trigger: "cli"}, lc.retrains[0])
	assert.Contains(t, out, "Trained incremental model in 1.2s")
	assert.Contains(t, out, "20240103_000000")
	assert.Contains(t, out, "Dropped")
}

func TestTrainCmd_FullSkipsBootstrap(t *testing.T) {
	withSettings(t)
	lc := &mockLifecycle{result: trainedResult("20240103_000000")}
	withLifecycle(t, lc)

	_, err := executeCommand(t, "train", "--full")

	require.NoError(t, err)
	assert.Zero(t, lc.bootstraps)
	require.Len(t, lc.retrains, 1)
	assert.True(t, lc.retrains[0].Full)
}

func TestTrainCmd_NoOp(t *testing.T) {
	withSettings(t)
	current := testArtifact("20240102_000000")
	lc := &mockLifecycle{current: current, result: &domain.TrainResult{Outcome: domain.OutcomeNoOp, Model: current}}
	withLifecycle(t, lc)

	out, err := executeCommand(t, "train", "--data", "datasets/empty.csv")

	require.NoError(t, err)
	assert.Contains(t, out, "model unchanged")
}

func TestTrainCmd_Error(t *testing.T) {
	withSettings(t)
	withLifecycle(t, &mockLifecycle{err: domain.ErrSchema})

	_, err := executeCommand(t, "train")

	assert.ErrorIs(t, err, domain.ErrSchema)
}
