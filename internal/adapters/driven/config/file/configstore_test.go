package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := NewConfigStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not toml {{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_LoadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[fetch]
timeout_seconds = 45
requests_per_second = 1.5

[fallback]
url = "http://127.0.0.1:8765"
headless = false
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 45, store.GetInt("fetch.timeout_seconds"))
	assert.InDelta(t, 1.5, store.GetFloat("fetch.requests_per_second"), 1e-9)
	assert.Equal(t, "http://127.0.0.1:8765", store.GetString("fallback.url"))
	_, ok := store.Get("fallback.headless")
	assert.True(t, ok)
	assert.False(t, store.GetBool("fallback.headless"))
}

func TestConfigStore_SaveWritesNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("fetch.burst", 8))
	require.NoError(t, store.Set("fallback.url", "http://localhost:9000"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, toml.Unmarshal(raw, &doc))

	fetch, ok := doc["fetch"].(map[string]any)
	require.True(t, ok, "fetch should be a table")
	assert.Equal(t, int64(8), fetch["burst"])
	fallback, ok := doc["fallback"].(map[string]any)
	require.True(t, ok, "fallback should be a table")
	assert.Equal(t, "http://localhost:9000", fallback["url"])
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store1.Set("data.dir", "/var/lib/chartrail"))
	require.NoError(t, store1.Set("fetch.timeout_seconds", 60))
	require.NoError(t, store1.Set("fetch.requests_per_second", 0.5))
	require.NoError(t, store1.Set("fallback.headless", true))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/chartrail", store2.GetString("data.dir"))
	assert.Equal(t, 60, store2.GetInt("fetch.timeout_seconds"))
	assert.InDelta(t, 0.5, store2.GetFloat("fetch.requests_per_second"), 1e-9)
	assert.True(t, store2.GetBool("fallback.headless"))
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("fetch.burst", "lots"))

	assert.Equal(t, 0, store.GetInt("fetch.burst"))
	assert.Zero(t, store.GetFloat("fetch.burst"))
	assert.False(t, store.GetBool("fetch.burst"))
	assert.Equal(t, "lots", store.GetString("fetch.burst"))
}

func TestConfigStore_GetFloat_WidensIntegers(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	store.mu.Lock()
	store.data["fetch.requests_per_second"] = int64(3)
	store.mu.Unlock()

	assert.InDelta(t, 3.0, store.GetFloat("fetch.requests_per_second"), 1e-9)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("data.dir", "/tmp/x"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("data.dir", "/tmp/x"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("fetch.burst", 2))
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"fetch.burst":   4,
		"fetch.timeout": 30,
		"plain":         "x",
	})

	assert.Equal(t, "x", nested["plain"])
	fetch, ok := nested["fetch"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4, fetch["burst"])
	assert.Equal(t, 30, fetch["timeout"])
}

func TestNestMap_ValueAndTablePrefixConflict(t *testing.T) {
	nested := nestMap(map[string]any{
		"fetch":       "scalar",
		"fetch.burst": 4,
	})

	// Either the scalar or the table survives, never a panic.
	assert.Contains(t, nested, "fetch")
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"fallback": map[string]any{"url": "http://x", "headless": true},
		"top":      1,
	}, "")

	assert.Equal(t, map[string]any{
		"fallback.url":      "http://x",
		"fallback.headless": true,
		"top":               1,
	}, flat)
}

func TestConfigStore_SaveLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("fallback.url", "http://127.0.0.1:8765"))
	require.NoError(t, store.Set("fallback.headless", true))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
