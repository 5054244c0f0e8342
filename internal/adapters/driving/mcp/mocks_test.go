package mcp

import (
	"context"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

// mockLifecycle is a mock implementation of driving.ModelLifecycle.
type mockLifecycle struct {
	current    *domain.ModelArtifact
	result     *domain.TrainResult
	prediction *driving.Prediction
	versions   []driving.VersionInfo
	status     driving.LifecycleStatus
	err        error

	lastRetrain driving.RetrainRequest
	lastRecord  domain.RawRecord
}

func (m *mockLifecycle) Bootstrap(_ context.Context) (*domain.ModelArtifact, error) {
	return m.current, m.err
}

func (m *mockLifecycle) CurrentModel() (*domain.ModelArtifact, error) {
	if m.current == nil {
		return nil, domain.ErrNoModel
	}
	return m.current, nil
}

func (m *mockLifecycle) RequestRetrain(_ context.Context, req driving.RetrainRequest) (*domain.TrainResult, error) {
	m.lastRetrain = req
	return m.result, m.err
}

func (m *mockLifecycle) Predict(_ context.Context, rec domain.RawRecord) (*driving.Prediction, error) {
	m.lastRecord = rec
	return m.prediction, m.err
}

func (m *mockLifecycle) Versions(_ context.Context) ([]driving.VersionInfo, error) {
	return m.versions, m.err
}

func (m *mockLifecycle) StartWatching(_ context.Context) error {
	return m.err
}

func (m *mockLifecycle) StopWatching() error {
	return nil
}

func (m *mockLifecycle) Status() driving.LifecycleStatus {
	return m.status
}

// stubRegressor is a fixed-output domain.Regressor.
type stubRegressor struct {
	rounds int
}

func (r stubRegressor) Predict(_ []float64) float64 { return 1000 }

func (r stubRegressor) Rounds() int { return r.rounds }

func testArtifact(id string) *domain.ModelArtifact {
	return &domain.ModelArtifact{
		Version: domain.ModelVersion{
			ID:   id,
			Path: "model_weights/xgboost_model_" + id + ".json",
		},
		Regressor: stubRegressor{rounds: 100},
		Metrics:   &domain.Metrics{RMSE: 550.5, MAE: 280.25, R2: 0.98},
	}
}
