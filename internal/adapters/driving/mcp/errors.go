// Package mcp provides an MCP (Model Context Protocol) server adapter for carat.
// It lets AI assistants inspect the published model, request retrains and
// price diamonds.
package mcp

import "errors"

// ErrMissingLifecycle is returned when the lifecycle manager is not provided.
var ErrMissingLifecycle = errors.New("mcp: model lifecycle is required")
