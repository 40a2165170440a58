package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

const documentsPayload = `{"documents":[
	{"documentId":"D1","downloadUrl":"/doc/D1","documentType":"letter","title":"Discharge letter"},
	{"documentId":"D2","downloadUrl":"/doc/D2"},
	{"documentId":"D3"}
]}`

func logDocumentsEvent(t *testing.T, env *testEnv) string {
	t.Helper()
	e := appendEvent(t, env, domain.RawEvent{
		Endpoint:  "/api/documents",
		PatientID: "P1",
		Payload:   []byte(documentsPayload),
	})
	return e.ID
}

func TestDocsRefsCmd(t *testing.T) {
	cleanup, env := setupTestEnv(t)
	defer cleanup()
	eventID := logDocumentsEvent(t, env)

	out, err := execute(t, "docs", "refs", eventID)

	require.NoError(t, err)
	assert.Contains(t, out, "D1")
	assert.Contains(t, out, "Title: Discharge letter")
	assert.Contains(t, out, "URL:   /doc/D2")
	assert.Contains(t, out, "Total: 3 references")
}

func TestDocsRefsCmd_UnknownEvent(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "docs", "refs", "nope")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocsMissingCmd(t *testing.T) {
	cleanup, env := setupTestEnv(t)
	defer cleanup()
	eventID := logDocumentsEvent(t, env)

	out, err := execute(t, "docs", "missing", eventID)

	require.NoError(t, err)
	assert.Contains(t, out, "Reason: not_in_store")
	assert.Contains(t, out, "Reason: no_download_url")
	assert.Contains(t, out, "Total: 3 missing")

	out, err = execute(t, "docs", "missing", eventID, "--downloadable")

	require.NoError(t, err)
	assert.NotContains(t, out, "no_download_url")
	assert.Contains(t, out, "Total: 2 missing")
}

func TestDocsFetchCmd_RequiresSession(t *testing.T) {
	cleanup, env := setupTestEnv(t)
	defer cleanup()
	eventID := logDocumentsEvent(t, env)

	_, err := execute(t, "docs", "fetch", eventID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session")
	assert.Empty(t, env.fetcher.calls)
}

func TestDocsFetchCmd_RetrievesOnce(t *testing.T) {
	cleanup, env := setupTestEnv(t)
	defer cleanup()
	eventID := logDocumentsEvent(t, env)
	session := writeSession(t)

	out, err := execute(t, "docs", "fetch", eventID, "--session", session)

	require.NoError(t, err)
	assert.Contains(t, out, "2 succeeded, 0 failed")
	assert.Equal(t, []string{"/doc/D1", "/doc/D2"}, env.fetcher.calls)
	assert.True(t, env.ledger.Has(context.Background(), "D1"))

	// The session is held in memory so a second run needs no file.
	out, err = execute(t, "docs", "fetch", eventID)

	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to fetch.")
	assert.Len(t, env.fetcher.calls, 2)

	out, err = execute(t, "docs", "list", "-p", "P1")

	require.NoError(t, err)
	assert.Contains(t, out, "D1 -> ")
	assert.Contains(t, out, "Title: Discharge letter")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocsListCmd_Empty(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "docs", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents retrieved yet.")
}

func TestPrintOutcomes_FailsWhenAnyFailed(t *testing.T) {
	outcomes := []domain.DownloadOutcome{
		{URL: "/doc/D1", OK: true, Artifact: &domain.StoredArtifact{
			ArtifactID: "a1",
			Provenance: domain.Provenance{}.WithMeta("stage", domain.StageHTTPFirst),
		}},
		{URL: "/doc/D2", Error: "HTTP 403"},
	}

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	err := printOutcomes(cmd, outcomes)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 downloads failed")
	assert.Contains(t, buf.String(), "ok      /doc/D1 -> a1 (http_first)")
	assert.Contains(t, buf.String(), "failed  /doc/D2: HTTP 403")
}
