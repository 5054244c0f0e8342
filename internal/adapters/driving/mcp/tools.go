package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

// MetricsOutput is a holdout evaluation.
type MetricsOutput struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r_squared"`
}

// ModelOutput describes a model version.
type ModelOutput struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Path      string         `json:"path"`
	Rounds    int            `json:"rounds,omitempty"`
	Metrics   *MetricsOutput `json:"metrics,omitempty"`
}

// CurrentModelInput is the input schema for the current_model tool.
type CurrentModelInput struct{}

// RetrainInput is the input schema for the retrain tool.
type RetrainInput struct {
	DataPath string `json:"data_path,omitempty" jsonschema:"CSV file with new labelled diamonds; omit together with full=true to refit on the base dataset"`
	Full     bool   `json:"full,omitempty" jsonschema:"refit from the base dataset instead of continuing the current model"`
}

// RetrainOutput is the output schema for the retrain tool.
type RetrainOutput struct {
	RunID      string      `json:"run_id"`
	Outcome    string      `json:"outcome"`
	Mode       string      `json:"mode"`
	RowsUsed   int         `json:"rows_used"`
	RowsDrop   int         `json:"rows_dropped"`
	DurationMS int64       `json:"duration_ms"`
	Model      ModelOutput `json:"model"`
}

// PredictInput is the input schema for the predict tool.
type PredictInput struct {
	Carat   float64 `json:"carat" jsonschema:"weight in carats"`
	Cut     string  `json:"cut" jsonschema:"one of Ideal, Premium, Very Good, Good, Fair"`
	Color   string  `json:"color" jsonschema:"one of D, E, F, G, H, I, J"`
	Clarity string  `json:"clarity" jsonschema:"one of IF, VVS1, VVS2, VS1, VS2, SI1, SI2, I1"`
	Depth   float64 `json:"depth" jsonschema:"total depth percentage"`
	Table   float64 `json:"table" jsonschema:"table width percentage"`
	X       float64 `json:"x" jsonschema:"length in mm"`
	Y       float64 `json:"y" jsonschema:"width in mm"`
	Z       float64 `json:"z" jsonschema:"depth in mm"`
}

// PredictOutput is the output schema for the predict tool.
type PredictOutput struct {
	Price   float64 `json:"price"`
	ModelID string  `json:"model_id"`
}

// StatusInput is the input schema for the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	ModelID       string         `json:"model_id,omitempty"`
	Metrics       *MetricsOutput `json:"metrics,omitempty"`
	Training      bool           `json:"training"`
	Watcher       string         `json:"watcher"`
	WatchDir      string         `json:"watch_dir,omitempty"`
	LastTrainedAt *time.Time     `json:"last_trained_at,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "current_model",
		Description: "Describe the published diamond price model and its holdout evaluation",
	}, s.handleCurrentModel)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrain",
		Description: "Train a new model version, optionally on a CSV of new diamonds. Fails if a retrain is already running",
	}, s.handleRetrain)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "predict",
		Description: "Predict the price of a diamond with the published model",
	}, s.handlePredict)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report whether a retrain or the directory watcher is running",
	}, s.handleStatus)
}

func (s *Server) handleCurrentModel(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ CurrentModelInput,
) (*mcp.CallToolResult, ModelOutput, error) {
	artifact, err := s.ports.Lifecycle.CurrentModel()
	if err != nil {
		return nil, ModelOutput{}, err
	}
	return nil, modelOutput(artifact), nil
}

// handleRetrain never waits behind a running retrain.
func (s *Server) handleRetrain(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrainInput,
) (*mcp.CallToolResult, RetrainOutput, error) {
	result, err := s.ports.Lifecycle.RequestRetrain(ctx, driving.RetrainRequest{
		DataPath: input.DataPath,
		Full:     input.Full,
		NoWait:   true,
		Trigger:  "mcp",
	})
	if err != nil {
		return nil, RetrainOutput{}, fmt.Errorf("retrain: %w", err)
	}

	output := RetrainOutput{
		RunID:      result.RunID,
		Outcome:    string(result.Outcome),
		Mode:       string(result.Mode),
		RowsUsed:   result.Stats.Kept,
		RowsDrop:   result.Stats.Dropped(),
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Model != nil {
		output.Model = modelOutput(result.Model)
	}
	return nil, output, nil
}

func (s *Server) handlePredict(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PredictInput,
) (*mcp.CallToolResult, PredictOutput, error) {
	prediction, err := s.ports.Lifecycle.Predict(ctx, domain.RawRecord{
		Cut:     input.Cut,
		Color:   input.Color,
		Clarity: input.Clarity,
		Carat:   input.Carat,
		Depth:   input.Depth,
		Table:   input.Table,
		Price:   math.NaN(),
		X:       input.X,
		Y:       input.Y,
		Z:       input.Z,
	})
	if err != nil {
		return nil, PredictOutput{}, err
	}
	return nil, PredictOutput{Price: prediction.Price, ModelID: prediction.ModelID}, nil
}

func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status := s.ports.Lifecycle.Status()
	output := StatusOutput{
		ModelID:   status.ModelID,
		Metrics:   metricsOutput(status.Metrics),
		Training:  status.Training,
		Watcher:   string(status.Watcher),
		WatchDir:  status.WatchDir,
		LastError: status.LastError,
	}
	if !status.LastTrainedAt.IsZero() {
		at := status.LastTrainedAt
		output.LastTrainedAt = &at
	}
	return nil, output, nil
}

func modelOutput(artifact *domain.ModelArtifact) ModelOutput {
	out := ModelOutput{
		ID:        artifact.Version.ID,
		CreatedAt: artifact.Version.CreatedAt,
		Path:      artifact.Version.Path,
		Metrics:   metricsOutput(artifact.Metrics),
	}
	if artifact.Regressor != nil {
		out.Rounds = artifact.Regressor.Rounds()
	}
	return out
}

func metricsOutput(m *domain.Metrics) *MetricsOutput {
	if m == nil {
		return nil
	}
	return &MetricsOutput{RMSE: m.RMSE, MAE: m.MAE, R2: m.R2}
}
