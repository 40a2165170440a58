// Package domain defines the core entities for chartrail.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawEvent: One captured interaction, immutable once logged
//   - IndexEntry: A versioned classification of a raw event
//   - Provenance: Audit record attached to derived data
//   - DocumentRef: A document pointer mined from a payload
//   - StoredArtifact: A downloaded document held in the artifact store
//   - SessionContext: Credentials of the active browser session
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
