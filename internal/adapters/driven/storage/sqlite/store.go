package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/chartrail/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// dbFileName is the ledger database file inside the data directory.
const dbFileName = "ledger.db"

// Store owns the SQLite connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the ledger database in dataDir and
// applies pending migrations.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, domain.DefaultDataDirName)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ledger returns a DocumentLedger backed by this store.
func (s *Store) Ledger() *Ledger {
	return &Ledger{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_documents.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		logger.Debug("applied ledger migration %s", name)
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ==================== Ledger ====================

// Ledger implements driven.DocumentLedger.
type Ledger struct {
	store *Store
}

var _ driven.DocumentLedger = (*Ledger)(nil)

// Has reports whether docID has been recorded.
// Query failures report false so the document is fetched again.
func (l *Ledger) Has(ctx context.Context, docID string) bool {
	var one int
	err := l.store.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE doc_id = ?", docID).Scan(&one)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn("ledger lookup %s: %v", docID, err)
		}
		return false
	}
	return true
}

// Record links a document to its artifact, replacing any earlier record.
func (l *Ledger) Record(ctx context.Context, rec domain.DocumentRecord) error {
	if rec.DocID == "" || rec.ArtifactID == "" {
		return domain.ErrInvalidInput
	}
	if rec.StoredAt.IsZero() {
		rec.StoredAt = time.Now().UTC()
	}

	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, artifact_id, patient_id, doc_type, title, source_url, stage, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			artifact_id = excluded.artifact_id,
			patient_id = excluded.patient_id,
			doc_type = excluded.doc_type,
			title = excluded.title,
			source_url = excluded.source_url,
			stage = excluded.stage,
			stored_at = excluded.stored_at
	`, rec.DocID, rec.ArtifactID, nullString(rec.PatientID), nullString(rec.DocType),
		nullString(rec.Title), nullString(rec.SourceURL), nullString(rec.Stage),
		rec.StoredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording document: %w", err)
	}
	return nil
}

// Get returns the record for docID.
func (l *Ledger) Get(ctx context.Context, docID string) (*domain.DocumentRecord, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT doc_id, artifact_id, patient_id, doc_type, title, source_url, stage, stored_at
		FROM documents WHERE doc_id = ?
	`, docID)
	return scanRecord(row)
}

// List returns records for patientID, or all records, newest first.
func (l *Ledger) List(ctx context.Context, patientID string) ([]domain.DocumentRecord, error) {
	query := `
		SELECT doc_id, artifact_id, patient_id, doc_type, title, source_url, stage, stored_at
		FROM documents`
	var args []any
	if patientID != "" {
		query += " WHERE patient_id = ?"
		args = append(args, patientID)
	}
	query += " ORDER BY stored_at DESC, doc_id"

	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

// Forget removes the record for docID.
func (l *Ledger) Forget(ctx context.Context, docID string) error {
	_, err := l.store.db.ExecContext(ctx, "DELETE FROM documents WHERE doc_id = ?", docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var patientID, docType, title, sourceURL, stage sql.NullString
	var storedAt string
	err := row.Scan(&rec.DocID, &rec.ArtifactID, &patientID, &docType, &title, &sourceURL, &stage, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	rec.PatientID = patientID.String
	rec.DocType = docType.String
	rec.Title = title.String
	rec.SourceURL = sourceURL.String
	rec.Stage = stage.String
	if t, err := time.Parse(time.RFC3339Nano, storedAt); err == nil {
		rec.StoredAt = t
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
