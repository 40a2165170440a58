package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "ledger.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreRecordedOnce(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	store, err := NewStore("/dev/null/cannot/create")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestLedger_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	ledger := setupTestStore(t).Ledger()
	stored := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := domain.DocumentRecord{
		DocID:      "doc-1",
		ArtifactID: "art-1",
		PatientID:  "p1",
		DocType:    "clinical_note",
		Title:      "Visit Summary",
		SourceURL:  "https://records.example/doc/1",
		Stage:      domain.StageHTTPFirst,
		StoredAt:   stored,
	}
	require.NoError(t, ledger.Record(ctx, rec))

	got, err := ledger.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.True(t, ledger.Has(ctx, "doc-1"))
	assert.False(t, ledger.Has(ctx, "doc-2"))
}

func TestLedger_RecordUpserts(t *testing.T) {
	ctx := context.Background()
	ledger := setupTestStore(t).Ledger()

	require.NoError(t, ledger.Record(ctx, domain.DocumentRecord{DocID: "doc-1", ArtifactID: "art-1"}))
	require.NoError(t, ledger.Record(ctx, domain.DocumentRecord{DocID: "doc-1", ArtifactID: "art-2"}))

	got, err := ledger.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "art-2", got.ArtifactID)
	assert.Empty(t, got.PatientID)
}

func TestLedger_RecordRequiresIDs(t *testing.T) {
	ledger := setupTestStore(t).Ledger()

	err := ledger.Record(context.Background(), domain.DocumentRecord{DocID: "doc-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_GetNotFound(t *testing.T) {
	ledger := setupTestStore(t).Ledger()

	_, err := ledger.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_ListByPatientNewestFirst(t *testing.T) {
	ctx := context.Background()
	ledger := setupTestStore(t).Ledger()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Record(ctx, domain.DocumentRecord{DocID: "a", ArtifactID: "1", PatientID: "p1", StoredAt: base}))
	require.NoError(t, ledger.Record(ctx, domain.DocumentRecord{DocID: "b", ArtifactID: "2", PatientID: "p2", StoredAt: base.Add(time.Hour)}))
	require.NoError(t, ledger.Record(ctx, domain.DocumentRecord{DocID: "c", ArtifactID: "3", PatientID: "p1", StoredAt: base.Add(2 * time.Hour)}))

	p1, err := ledger.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, "c", p1[0].DocID)
	assert.Equal(t, "a", p1[1].DocID)

	all, err := ledger.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLedger_Forget(t *testing.T) {
	ctx := context.Background()
	ledger := setupTestStore(t).Ledger()
	require.NoError(t, ledger.Record(ctx, domain.DocumentRecord{DocID: "doc-1", ArtifactID: "art-1"}))

	require.NoError(t, ledger.Forget(ctx, "doc-1"))
	require.NoError(t, ledger.Forget(ctx, "doc-1"))

	assert.False(t, ledger.Has(ctx, "doc-1"))
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Ledger().Record(ctx, domain.DocumentRecord{DocID: "doc-1", ArtifactID: "art-1"}))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()
	assert.True(t, second.Ledger().Has(ctx, "doc-1"))
}
