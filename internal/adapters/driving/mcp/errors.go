// Package mcp provides an MCP (Model Context Protocol) server adapter for chartrail.
// It lets AI assistants query the classification index, find documents that
// still need retrieving, and inspect stored artifacts.
package mcp

import "errors"

// ErrMissingIndexService is returned when the index service is not provided.
var ErrMissingIndexService = errors.New("mcp: index service is required")
