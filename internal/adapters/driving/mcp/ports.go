package mcp

import (
	"github.com/custodia-labs/carat/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Lifecycle owns the published model.
	Lifecycle driving.ModelLifecycle
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Lifecycle == nil {
		return ErrMissingLifecycle
	}
	return nil
}
