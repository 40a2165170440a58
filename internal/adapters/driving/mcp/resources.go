package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for chartrail resources.
	uriScheme = "chartrail://"

	jsonMIME = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "Index entry counts per clinical category",
		MIMEType:    jsonMIME,
	}, s.handleCategoriesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "events/{eventId}",
		Name:        "event",
		Description: "A logged event including its payload",
		MIMEType:    jsonMIME,
	}, s.handleEventResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "artifacts/{artifactId}",
		Name:        "artifact",
		Description: "Metadata and provenance of a stored artifact",
		MIMEType:    jsonMIME,
	}, s.handleArtifactResource)
}

// handleCategoriesResource returns the category statistics.
func (s *Server) handleCategoriesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	counts, err := s.ports.Index.CategoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading category stats: %w", err)
	}
	if counts == nil {
		counts = []domain.CategoryCount{}
	}
	return jsonResource(req.Params.URI, counts)
}

// handleEventResource returns one logged event.
func (s *Server) handleEventResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Capture == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// chartrail://events/{eventId}
	eventID := extractID(req.Params.URI, "events/")
	if eventID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	event, err := s.ports.Capture.Event(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading event: %w", err)
	}
	return jsonResource(req.Params.URI, event)
}

// handleArtifactResource returns artifact metadata. Content is not exposed.
func (s *Server) handleArtifactResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Artifact == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// chartrail://artifacts/{artifactId}
	artifactID := extractID(req.Params.URI, "artifacts/")
	if artifactID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	artifact, err := s.ports.Artifact.Get(ctx, artifactID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return jsonResource(req.Params.URI, artifact)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIME,
			Text:     string(data),
		}},
	}, nil
}

// extractID returns the single path segment after uriScheme+kind, or "".
func extractID(uri, kind string) string {
	prefix := uriScheme + kind
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
