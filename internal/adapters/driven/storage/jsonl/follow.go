package jsonl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// errStop ends a scan early without reporting an error.
var errStop = errors.New("stop scan")

// tail tracks a read position in a growing file.
type tail struct {
	path   string
	offset int64
	buf    []byte // partial trailing line
	lineNo int
}

// Follow calls fn for each event appended after the call until ctx is
// cancelled. The directory is watched rather than the file so a log that
// does not exist yet is picked up when created.
func (l *EventLog) Follow(ctx context.Context, fn func(domain.RawEvent) error) error {
	start, err := l.file.size()
	if err != nil {
		return fmt.Errorf("stat %s: %w", l.file.path, err)
	}
	t := &tail{path: l.file.path, offset: start}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(l.file.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(l.file.path), err)
	}

	poll := time.NewTicker(l.pollInterval)
	defer poll.Stop()

	emit := func(line []byte) error {
		e, ok := decodeEvent(line, t.path, t.lineNo)
		if !ok {
			return nil
		}
		return fn(e)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(t.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := t.readNew(emit); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error on %s: %v", t.path, err)

		case <-poll.C:
			if err := t.readNew(emit); err != nil {
				return err
			}
		}
	}
}

// readNew reads from the last offset to EOF and emits complete lines.
// Bytes after the last newline are kept until the rest of the line lands.
func (t *tail) readNew(emit func([]byte) error) error {
	fh, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", t.path, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		logger.Warn("%s shrank from %d to %d bytes, rereading from start", t.path, t.offset, info.Size())
		t.offset = 0
		t.buf = nil
	}
	if info.Size() == t.offset {
		return nil
	}

	if _, err := fh.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", t.path, err)
	}
	chunk, err := io.ReadAll(fh)
	if err != nil {
		return fmt.Errorf("reading %s: %w", t.path, err)
	}
	t.offset += int64(len(chunk))

	data := append(t.buf, chunk...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(data[:i])
		data = data[i+1:]
		t.lineNo++
		if len(line) == 0 {
			continue
		}
		if err := emit(line); err != nil {
			t.buf = append([]byte(nil), data...)
			return err
		}
	}
	t.buf = append([]byte(nil), data...)
	return nil
}
