package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// IndexFile is the classification index file name inside the data directory.
const IndexFile = "index.jsonl"

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is the append-only classification index.
type IndexStore struct {
	file *lineFile
}

// NewIndexStore opens the index in dataDir, creating the directory.
func NewIndexStore(dataDir string) (*IndexStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &IndexStore{file: &lineFile{path: filepath.Join(dataDir, IndexFile)}}, nil
}

// Path returns the index file path.
func (s *IndexStore) Path() string {
	return s.file.path
}

// Append writes entry as one line.
func (s *IndexStore) Append(_ context.Context, entry domain.IndexEntry) error {
	if entry.ID == "" || entry.EventID == "" {
		return fmt.Errorf("%w: index entry needs id and event id", domain.ErrInvalidInput)
	}
	return s.file.appendRecord(entry)
}

// Scan streams every parsable entry in append order.
func (s *IndexStore) Scan(ctx context.Context, fn func(domain.IndexEntry) error) error {
	return s.file.scanLines(ctx, func(line []byte, n int) error {
		var e domain.IndexEntry
		if err := json.Unmarshal(line, &e); err != nil {
			logger.Warn("skipping malformed line %d in %s: %v", n, s.file.path, err)
			return nil
		}
		return fn(e)
	})
}
