// Package services implements the driving port interfaces.
//
// The capture path appends a RawEvent to the event log and hands it to the
// Indexer, which runs the Classifier, endpoint normaliser and structure
// analyser to produce a versioned IndexEntry. The retrieval path extracts
// DocumentRefs from a logged payload, drops those the ledger already holds,
// and passes the rest to the DownloadManager (direct HTTP, then the optional
// fallback service).
//
// Services depend only on domain and the driven ports.
package services
