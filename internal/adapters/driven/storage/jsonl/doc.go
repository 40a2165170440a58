// Package jsonl provides append-only newline-delimited JSON stores.
//
// The raw event log (events.jsonl) and the classification index
// (index.jsonl) are separate files so reindexing never contends with
// capture. Writers serialise on a per-file mutex and open with O_APPEND;
// readers take no lock and skip lines that do not parse, which covers a
// torn trailing line from a concurrent write.
package jsonl
