package mcp

import (
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Index queries the classification index.
	Index driving.IndexService

	// Capture reads the event log.
	Capture driving.CaptureService

	// Retrieval finds document references and missing documents.
	Retrieval driving.RetrievalService

	// Artifact inspects the artifact store.
	Artifact driving.ArtifactService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Index == nil {
		return ErrMissingIndexService
	}
	// Tools backed by the other ports report an error when called without them.
	return nil
}
