package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// defaultToolLimit caps list results when the caller gives no limit.
const defaultToolLimit = 20

// QueryIndexInput is the input schema for the query_index tool.
type QueryIndexInput struct {
	PatientID     string  `json:"patient_id,omitempty" jsonschema:"only entries for this patient"`
	Category      string  `json:"category,omitempty" jsonschema:"clinical category such as medications, labs or documents"`
	Subcategory   string  `json:"subcategory,omitempty" jsonschema:"subcategory within the category"`
	SourceType    string  `json:"source_type,omitempty" jsonschema:"observed, triggered or explored"`
	MinConfidence float64 `json:"min_confidence,omitempty" jsonschema:"minimum classification confidence between 0 and 1"`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum number of entries to return (default 20)"`
}

// QueryIndexOutput is the output schema for the query_index tool.
type QueryIndexOutput struct {
	Entries []IndexEntryOutput `json:"entries"`
	Count   int                `json:"count"`
}

// IndexEntryOutput is one index entry, without provenance and hints.
type IndexEntryOutput struct {
	EventID         string    `json:"event_id"`
	Timestamp       time.Time `json:"timestamp"`
	PatientID       string    `json:"patient_id,omitempty"`
	Category        string    `json:"category"`
	Subcategory     string    `json:"subcategory,omitempty"`
	SourceType      string    `json:"source_type"`
	EndpointPattern string    `json:"endpoint_pattern"`
	Confidence      float64   `json:"confidence"`
	IndexerVersion  string    `json:"indexer_version"`
}

// CategoryStatsInput is the input schema for the category_stats tool.
type CategoryStatsInput struct{}

// CategoryStatsOutput is the output schema for the category_stats tool.
type CategoryStatsOutput struct {
	Categories []CategoryCountOutput `json:"categories"`
	Total      int                   `json:"total"`
}

// CategoryCountOutput is the entry count of one category.
type CategoryCountOutput struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FindMissingInput is the input schema for the find_missing tool.
type FindMissingInput struct {
	EventID string `json:"event_id" jsonschema:"ID of the logged event to inspect"`
}

// FindMissingOutput is the output schema for the find_missing tool.
type FindMissingOutput struct {
	Missing      []MissingOutput `json:"missing"`
	Downloadable int             `json:"downloadable"`
}

// MissingOutput is one referenced document that is not stored.
type MissingOutput struct {
	DocID        string `json:"doc_id"`
	Title        string `json:"title,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
	FilenameHint string `json:"filename_hint"`
	Reason       string `json:"reason"`
}

// ListEventsInput is the input schema for the list_events tool.
type ListEventsInput struct {
	PatientID string `json:"patient_id,omitempty" jsonschema:"only events for this patient"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of events to return (default 20)"`
}

// ListEventsOutput is the output schema for the list_events tool.
type ListEventsOutput struct {
	Events []EventOutput `json:"events"`
	Count  int           `json:"count"`
}

// EventOutput summarises a logged event without its payload.
type EventOutput struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Endpoint  string    `json:"endpoint"`
	PatientID string    `json:"patient_id,omitempty"`
}

// ArtifactStatsInput is the input schema for the artifact_stats tool.
type ArtifactStatsInput struct{}

// ArtifactStatsOutput is the output schema for the artifact_stats tool.
type ArtifactStatsOutput struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
	Subjects   int   `json:"subjects"`
}

// errPortUnavailable reports a tool whose backing service is not wired.
var errPortUnavailable = errors.New("service not available")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_index",
		Description: "Query classified events by patient, category, source type and confidence, most recent first",
	}, s.handleQueryIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "category_stats",
		Description: "Count classification index entries per clinical category",
	}, s.handleCategoryStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_events",
		Description: "List the most recent logged events",
	}, s.handleListEvents)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_missing",
		Description: "List documents referenced by a logged event that are not stored yet",
	}, s.handleFindMissing)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "artifact_stats",
		Description: "Summarise the artifact store",
	}, s.handleArtifactStats)
}

func (s *Server) handleQueryIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryIndexInput,
) (*mcp.CallToolResult, QueryIndexOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}
	sourceType := domain.SourceType(input.SourceType)
	if sourceType != "" && !sourceType.IsValid() {
		return nil, QueryIndexOutput{}, fmt.Errorf("invalid source_type %q", input.SourceType)
	}

	filter := domain.IndexFilter{
		PatientID:   input.PatientID,
		Category:    domain.Category(input.Category),
		Subcategory: input.Subcategory,
		SourceType:  sourceType,
	}
	entries, err := s.ports.Index.Query(ctx, filter, input.MinConfidence, limit)
	if err != nil {
		return nil, QueryIndexOutput{}, err
	}

	output := QueryIndexOutput{
		Entries: make([]IndexEntryOutput, len(entries)),
		Count:   len(entries),
	}
	for i := range entries {
		e := &entries[i]
		output.Entries[i] = IndexEntryOutput{
			EventID:         e.EventID,
			Timestamp:       e.Timestamp,
			PatientID:       e.PatientID,
			Category:        e.Category.String(),
			Subcategory:     e.Subcategory,
			SourceType:      string(e.SourceType),
			EndpointPattern: e.EndpointPattern,
			Confidence:      e.Confidence,
			IndexerVersion:  e.IndexerVersion,
		}
	}
	return nil, output, nil
}

func (s *Server) handleCategoryStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CategoryStatsInput,
) (*mcp.CallToolResult, CategoryStatsOutput, error) {
	counts, err := s.ports.Index.CategoryStats(ctx)
	if err != nil {
		return nil, CategoryStatsOutput{}, err
	}

	output := CategoryStatsOutput{Categories: make([]CategoryCountOutput, len(counts))}
	for i, c := range counts {
		output.Categories[i] = CategoryCountOutput{Category: c.Category.String(), Count: c.Count}
		output.Total += c.Count
	}
	return nil, output, nil
}

func (s *Server) handleListEvents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListEventsInput,
) (*mcp.CallToolResult, ListEventsOutput, error) {
	if s.ports.Capture == nil {
		return nil, ListEventsOutput{}, fmt.Errorf("list_events: %w", errPortUnavailable)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}

	events, err := s.ports.Capture.Events(ctx, input.PatientID, limit)
	if err != nil {
		return nil, ListEventsOutput{}, err
	}

	output := ListEventsOutput{Events: make([]EventOutput, len(events)), Count: len(events)}
	for i := range events {
		e := &events[i]
		output.Events[i] = EventOutput{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Method:    e.Method,
			Endpoint:  e.Endpoint,
			PatientID: e.PatientID,
		}
	}
	return nil, output, nil
}

func (s *Server) handleFindMissing(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindMissingInput,
) (*mcp.CallToolResult, FindMissingOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, FindMissingOutput{}, fmt.Errorf("find_missing: %w", errPortUnavailable)
	}
	if input.EventID == "" {
		return nil, FindMissingOutput{}, errors.New("event_id is required")
	}

	missing, err := s.ports.Retrieval.Missing(ctx, input.EventID)
	if err != nil {
		return nil, FindMissingOutput{}, err
	}

	output := FindMissingOutput{Missing: make([]MissingOutput, len(missing))}
	for i := range missing {
		m := &missing[i]
		output.Missing[i] = MissingOutput{
			DocID:        m.Ref.DocID,
			Title:        m.Ref.Title,
			DocType:      m.Ref.DocType,
			DownloadURL:  m.Ref.DownloadURL,
			FilenameHint: m.Ref.FilenameHint,
			Reason:       string(m.Reason),
		}
		if m.Downloadable() {
			output.Downloadable++
		}
	}
	return nil, output, nil
}

func (s *Server) handleArtifactStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ArtifactStatsInput,
) (*mcp.CallToolResult, ArtifactStatsOutput, error) {
	if s.ports.Artifact == nil {
		return nil, ArtifactStatsOutput{}, fmt.Errorf("artifact_stats: %w", errPortUnavailable)
	}

	stats, err := s.ports.Artifact.Stats(ctx)
	if err != nil {
		return nil, ArtifactStatsOutput{}, err
	}
	return nil, ArtifactStatsOutput{Count: stats.Count, TotalBytes: stats.TotalBytes, Subjects: stats.Subjects}, nil
}
