// Package artifacts provides the filesystem artifact store.
//
// Layout under the store root:
//
//	files/<id>_<filename>          artifact bytes
//	meta/<id>.json                 StoredArtifact record
//	subjects/<subject>/<id>.json   per-subject reference
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/logger"
)

const (
	filesDir    = "files"
	metaDir     = "meta"
	subjectsDir = "subjects"

	maxFilenameLen = 120
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Ensure Store implements the interface.
var _ driven.ArtifactStore = (*Store)(nil)

// Store keeps artifacts on the local filesystem.
type Store struct {
	root string
	now  func() time.Time
}

// subjectRef is the per-subject pointer file.
type subjectRef struct {
	ArtifactID string    `json:"artifact_id"`
	StoredAt   time.Time `json:"stored_at"`
}

// NewStore creates the store layout under root.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{filesDir, metaDir, subjectsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0700); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return &Store{root: root, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Put writes data under a new artifact ID. Identical bytes stored twice
// produce two artifacts.
func (s *Store) Put(
	_ context.Context,
	data []byte,
	filename, mimeType string,
	prov domain.Provenance,
) (*domain.StoredArtifact, error) {
	id := uuid.NewString()
	name := sanitizeFilename(filename)
	path := filepath.Join(s.root, filesDir, id+"_"+name)

	if prov.ArtifactHash == "" {
		prov.ArtifactHash = domain.ContentHash(data)
	}
	art := domain.StoredArtifact{
		ArtifactID:       id,
		Path:             path,
		SizeBytes:        int64(len(data)),
		MimeType:         mimeType,
		Provenance:       prov.WithMeta("artifact_id", id),
		OriginalFilename: filename,
		StoredAt:         s.now(),
	}

	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("writing artifact: %w", err)
	}
	if err := s.writeJSON(s.metaPath(id), art); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	if subject := sanitizeSegment(prov.PatientHint); subject != "" {
		dir := filepath.Join(s.root, subjectsDir, subject)
		if err := os.MkdirAll(dir, 0700); err != nil {
			s.discard(id, path)
			return nil, fmt.Errorf("creating subject directory: %w", err)
		}
		ref := subjectRef{ArtifactID: id, StoredAt: art.StoredAt}
		if err := s.writeJSON(filepath.Join(dir, id+".json"), ref); err != nil {
			s.discard(id, path)
			return nil, fmt.Errorf("writing subject reference: %w", err)
		}
	}

	logger.Debug("stored artifact %s (%d bytes) at %s", id, len(data), path)
	return &art, nil
}

// discard removes the bytes and metadata of a partially stored artifact.
func (s *Store) discard(id, path string) {
	for _, p := range []string{path, s.metaPath(id)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("removing partial artifact file %s: %v", p, err)
		}
	}
}

// Get returns the artifact bytes.
func (s *Store) Get(ctx context.Context, artifactID string) ([]byte, error) {
	art, err := s.GetMetadata(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(art.Path)
	if err != nil {
		logger.Debug("reading artifact %s: %v", artifactID, err)
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// GetMetadata returns the metadata record.
func (s *Store) GetMetadata(_ context.Context, artifactID string) (*domain.StoredArtifact, error) {
	if !validID(artifactID) {
		return nil, domain.ErrNotFound
	}
	raw, err := os.ReadFile(s.metaPath(artifactID))
	if err != nil {
		return nil, domain.ErrNotFound
	}
	var art domain.StoredArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		logger.Warn("unreadable metadata for artifact %s: %v", artifactID, err)
		return nil, domain.ErrNotFound
	}
	return &art, nil
}

// Delete removes the bytes, metadata and subject references.
func (s *Store) Delete(_ context.Context, artifactID string) (bool, error) {
	if !validID(artifactID) {
		return false, nil
	}

	removed := false
	files, err := filepath.Glob(filepath.Join(s.root, filesDir, artifactID+"_*"))
	if err != nil {
		return false, err
	}
	refs, err := filepath.Glob(filepath.Join(s.root, subjectsDir, "*", artifactID+".json"))
	if err != nil {
		return false, err
	}
	targets := append(files, refs...)
	targets = append(targets, s.metaPath(artifactID))

	for _, p := range targets {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return removed, nil
}

// ListBySubject returns the artifacts referenced under subjectID, newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectID string) ([]domain.StoredArtifact, error) {
	subject := sanitizeSegment(subjectID)
	if subject == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(filepath.Join(s.root, subjectsDir, subject))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []domain.StoredArtifact
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		art, err := s.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *art)
	}
	sortNewestFirst(out)
	return out, nil
}

// ListAll returns up to limit artifacts, newest first. A non-positive limit
// returns everything.
func (s *Store) ListAll(ctx context.Context, limit int) ([]domain.StoredArtifact, error) {
	all, err := s.readAllMeta(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Stats summarises the store.
func (s *Store) Stats(ctx context.Context) (domain.ArtifactStats, error) {
	all, err := s.readAllMeta(ctx)
	if err != nil {
		return domain.ArtifactStats{}, err
	}
	stats := domain.ArtifactStats{Count: len(all)}
	for _, art := range all {
		stats.TotalBytes += art.SizeBytes
	}

	subjects, err := os.ReadDir(filepath.Join(s.root, subjectsDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return stats, err
	}
	for _, d := range subjects {
		if !d.IsDir() {
			continue
		}
		refs, _ := filepath.Glob(filepath.Join(s.root, subjectsDir, d.Name(), "*.json"))
		if len(refs) > 0 {
			stats.Subjects++
		}
	}
	return stats, nil
}

func (s *Store) readAllMeta(ctx context.Context) ([]domain.StoredArtifact, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, metaDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]domain.StoredArtifact, 0, len(entries))
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		art, err := s.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *art)
	}
	return out, nil
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.root, metaDir, id+".json")
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes to a temp file in the same directory then renames.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sortNewestFirst(arts []domain.StoredArtifact) {
	sort.SliceStable(arts, func(i, j int) bool {
		if !arts[i].StoredAt.Equal(arts[j].StoredAt) {
			return arts[i].StoredAt.After(arts[j].StoredAt)
		}
		return arts[i].ArtifactID < arts[j].ArtifactID
	})
}

// validID accepts only canonical UUIDs so IDs can never escape the store.
func validID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// sanitizeSegment makes s safe as a single path segment.
func sanitizeSegment(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_"), "._")
}

// sanitizeFilename keeps the extension while capping the name length.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(name)
	stem := sanitizeSegment(strings.TrimSuffix(name, ext))
	ext = sanitizeSegment(strings.TrimPrefix(ext, "."))
	if stem == "" {
		stem = "artifact"
	}
	if ext != "" {
		ext = "." + ext
		if len(ext) > 16 {
			ext = ext[:16]
		}
	}
	if len(stem)+len(ext) > maxFilenameLen {
		stem = stem[:maxFilenameLen-len(ext)]
	}
	return stem + ext
}
