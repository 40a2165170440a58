package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// lineFile is one append-only NDJSON file.
type lineFile struct {
	mu   sync.Mutex
	path string
}

// appendRecord writes v as a single newline-terminated line.
func (f *lineFile) appendRecord(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	torn, err := endsMidLine(fh)
	if err != nil {
		fh.Close()
		return fmt.Errorf("checking %s: %w", f.path, err)
	}
	if torn {
		// Terminate a partial line left by an interrupted write so it
		// does not swallow this record.
		line = append([]byte{'\n'}, line...)
	}
	if _, err := fh.Write(line); err != nil {
		fh.Close()
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return fh.Close()
}

// endsMidLine reports whether fh is non-empty and lacks a trailing newline.
func endsMidLine(fh *os.File) (bool, error) {
	info, err := fh.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := fh.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// scanLines calls fn with each non-blank line and its 1-based number.
// A missing file has no lines.
func (f *lineFile) scanLines(ctx context.Context, fn func(line []byte, n int) error) error {
	fh, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer fh.Close()

	r := bufio.NewReaderSize(fh, 64*1024)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if err := fn(trimmed, n); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("reading %s: %w", f.path, readErr)
		}
	}
}

// size returns the current file size, zero when missing.
func (f *lineFile) size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}
