package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chartrail/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chartrail/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/services"
)

// stubFetcher serves a small PDF for every URL.
type stubFetcher struct {
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, _ domain.SessionContext, rawURL string) (*domain.FetchResult, error) {
	f.calls = append(f.calls, rawURL)
	return &domain.FetchResult{
		StatusCode:  200,
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4 " + rawURL),
	}, nil
}

// testEnv holds the in-memory stores behind the services under test.
type testEnv struct {
	events    *memory.EventLog
	artifacts *memory.ArtifactStore
	ledger    *memory.Ledger
	config    *file.ConfigStore
	fetcher   *stubFetcher
}

// setupTestServices wires real services over in-memory stores and returns a
// cleanup that restores the previous state.
func setupTestServices(t *testing.T) func() {
	t.Helper()
	cleanup, _ := setupTestEnv(t)
	return cleanup
}

func setupTestEnv(t *testing.T) (func(), *testEnv) {
	t.Helper()

	config, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	env := &testEnv{
		events:    memory.NewEventLog(),
		artifacts: memory.NewArtifactStore(),
		ledger:    memory.NewLedger(),
		config:    config,
		fetcher:   &stubFetcher{},
	}

	indexer := services.NewIndexer(env.events, memory.NewIndexStore(), services.NewClassifier(), "9.9.9")
	downloads := services.NewDownloadManager(env.fetcher, nil, env.artifacts)

	SetServices(Services{
		Capture:   services.NewCaptureService(env.events, indexer),
		Index:     indexer,
		Retrieval: services.NewRetrievalService(env.events, env.ledger, downloads),
		Download:  downloads,
		Artifact:  services.NewArtifactService(env.artifacts, env.ledger),
		Settings:  services.NewSettingsService(env.config),
		Session:   services.NewSessionHolder(),
	})

	return func() {
		SetServices(Services{})
		resetFlags(rootCmd)
	}, env
}

// resetFlags restores every flag to its default so commands do not leak
// state between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args from default flag values and
// returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeFile writes content to a file in a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// writeSession writes a valid session file.
func writeSession(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(domain.SessionContext{
		BaseURL:     "https://portal.example.com",
		Cookies:     map[string]string{"sid": "abc"},
		PatientHint: "P1",
	})
	require.NoError(t, err)
	return writeFile(t, "session.json", string(data))
}

// appendEvent logs an event directly and returns it.
func appendEvent(t *testing.T, env *testEnv, event domain.RawEvent) domain.RawEvent {
	t.Helper()
	logged, err := env.events.Append(context.Background(), event)
	require.NoError(t, err)
	return logged
}
