// Package sqlite provides the SQLite-backed document ledger.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The ledger records which stored artifact satisfied each
// document reference and doubles as the ArtifactIndex consulted before
// downloading, so a document is fetched once across runs.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// The database lives at <data dir>/ledger.db.
//
// # Thread Safety
//
// All operations are safe for concurrent use. SQLite runs in WAL mode with a
// busy timeout.
package sqlite
