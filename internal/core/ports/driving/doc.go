// Package driving defines the interfaces the CLI and the MCP server call
// into: capture, index, retrieval, download, artifacts, settings and the
// in-memory session.
//
// Implementations live in internal/core/services.
package driving
