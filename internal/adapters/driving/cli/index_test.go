package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

func TestIndexCmd_Subcommands(t *testing.T) {
	names := make([]string, 0, len(indexCmd.Commands()))
	for _, c := range indexCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "query", "stats", "watch"}, names)
}

func TestIndexQueryCmd_LimitFlag(t *testing.T) {
	flag := indexQueryCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
}

func TestIndexRunCmd_IndexesLoggedEvents(t *testing.T) {
	cleanup, env := setupTestEnv(t)
	defer cleanup()
	appendEvent(t, env, domain.RawEvent{Endpoint: "/api/test-results", PatientID: "P1"})
	appendEvent(t, env, domain.RawEvent{Endpoint: "/api/allergies", PatientID: "P1"})

	out, err := execute(t, "index", "run")

	require.NoError(t, err)
	assert.Contains(t, out, "indexer version 9.9.9")
	assert.Contains(t, out, "Scanned: 2  Indexed: 2  Skipped: 0  Errors: 0")
	assert.Contains(t, out, "labs")
	assert.Contains(t, out, "allergies")

	out, err = execute(t, "index", "run")

	require.NoError(t, err)
	assert.Contains(t, out, "Scanned: 2  Indexed: 0  Skipped: 2  Errors: 0")
}

func TestIndexRunCmd_Force(t *testing.T) {
	cleanup, env := setupTestEnv(t)
	defer cleanup()
	appendEvent(t, env, domain.RawEvent{Endpoint: "/api/allergies"})

	_, err := execute(t, "index", "run")
	require.NoError(t, err)

	out, err := execute(t, "index", "run", "--force")

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed: 1")
}

func TestIndexQueryCmd_FiltersByCategory(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "capture", "-e", "/api/test-results", "-p", "P1")
	require.NoError(t, err)
	_, err = execute(t, "capture", "-e", "/api/allergies", "-p", "P1")
	require.NoError(t, err)

	out, err := execute(t, "index", "query", "-c", "labs")

	require.NoError(t, err)
	assert.Contains(t, out, "labs/results")
	assert.NotContains(t, out, "allergies")
	assert.Contains(t, out, "Total: 1 entries")
}

func TestIndexQueryCmd_NoMatches(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "index", "query", "--min-confidence", "0.5")

	require.NoError(t, err)
	assert.Contains(t, out, "No matching entries.")
}

func TestIndexQueryCmd_InvalidSourceType(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "index", "query", "--source-type", "guessed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source type")
}

func TestIndexStatsCmd(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "index", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Index is empty.")

	_, err = execute(t, "capture", "-e", "/api/allergies")
	require.NoError(t, err)

	out, err = execute(t, "index", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "allergies")
	assert.Contains(t, out, "Total: 1 entries")
}
