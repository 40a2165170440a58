// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EventLog: Append-only raw event storage
//   - IndexStore: Append-only classification entry storage
//   - ArtifactStore: Downloaded document storage
//   - ArtifactIndex / DocumentLedger: Which documents are already stored
//   - DocumentFetcher: Direct HTTP retrieval with session credentials
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FallbackFetcher: Quarantined browser retrieval. Without it, downloads
//     end after the direct HTTP attempt.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
