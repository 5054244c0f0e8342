package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

const (
	// uriScheme is the custom URI scheme for carat resources.
	uriScheme = "carat://"
)

// versionInfo is the JSON form of a stored version.
type versionInfo struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Path      string         `json:"path"`
	Current   bool           `json:"current"`
	Seed      *uint64        `json:"seed,omitempty"`
	Metrics   *MetricsOutput `json:"metrics,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "models",
		Name:        "models",
		Description: "Stored model versions with their evaluations, oldest first",
		MIMEType:    "application/json",
	}, s.handleModelsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "models/{modelId}",
		Name:        "model",
		Description: "One stored model version and its evaluation",
		MIMEType:    "application/json",
	}, s.handleModelResource)
}

// handleModelsResource lists every stored version.
func (s *Server) handleModelsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	versions, err := s.ports.Lifecycle.Versions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	infos := make([]versionInfo, len(versions))
	for i := range versions {
		infos[i] = toVersionInfo(versions[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleModelResource describes one stored version.
func (s *Server) handleModelResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractModelID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	versions, err := s.ports.Lifecycle.Versions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	for i := range versions {
		if versions[i].Version.ID == id {
			return jsonResource(req.Params.URI, toVersionInfo(versions[i]))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func toVersionInfo(v driving.VersionInfo) versionInfo {
	info := versionInfo{
		ID:        v.Version.ID,
		CreatedAt: v.Version.CreatedAt,
		Path:      v.Version.Path,
		Current:   v.Current,
	}
	if v.Evaluation != nil {
		seed := v.Evaluation.Seed
		info.Seed = &seed
		info.Metrics = metricsOutput(&v.Evaluation.Metrics)
	}
	return info
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractModelID extracts the version id from a URI like carat://models/{modelId}.
func extractModelID(uri string) string {
	const prefix = uriScheme + "models/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
