// Command chartrail captures, classifies and retrieves patient portal records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/chartrail/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chartrail/internal/adapters/driven/fetch/direct"
	"github.com/custodia-labs/chartrail/internal/adapters/driven/fetch/fallback"
	"github.com/custodia-labs/chartrail/internal/adapters/driven/storage/artifacts"
	"github.com/custodia-labs/chartrail/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/chartrail/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chartrail/internal/adapters/driving/cli"
	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/services"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap opens the stores under the data directory and wires services.
func bootstrap(opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	dataDir, err := resolveDataDir(opts.DataDir, settings.DataDir)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("data directory %s, config %s", dataDir, configStore.Path())

	events, err := jsonl.NewEventLog(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	entries, err := jsonl.NewIndexStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	artifactStore, err := artifacts.NewStore(filepath.Join(dataDir, "artifacts"))
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact store: %w", err)
	}
	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	ledger := db.Ledger()

	fetcher := direct.NewFetcher(direct.FromSettings(settings.Fetch))
	fallbackClient := fallback.NewClient(settings.Fallback)

	indexer := services.NewIndexer(events, entries, services.NewClassifier(), domain.DefaultIndexerVersion)
	downloads := services.NewDownloadManager(fetcher, fallbackClient, artifactStore)

	svc := &cli.Services{
		Capture:   services.NewCaptureService(events, indexer),
		Index:     indexer,
		Retrieval: services.NewRetrievalService(events, ledger, downloads),
		Download:  downloads,
		Artifact:  services.NewArtifactService(artifactStore, ledger),
		Settings:  settingsService,
		Session:   services.NewSessionHolder(),
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close ledger: %v", err)
		}
	}
	return svc, cleanup, nil
}

// resolveDataDir prefers the flag, then the setting, then ~/.chartrail.
func resolveDataDir(flag, setting string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if setting != "" {
		return setting, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, domain.DefaultDataDirName), nil
}
