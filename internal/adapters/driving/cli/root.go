// Package cli provides the chartrail command line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Options are the global flags, resolved before services are built.
type Options struct {
	Verbose   bool
	DataDir   string
	ConfigDir string
}

// Services are the driving ports the commands call into.
type Services struct {
	Capture   driving.CaptureService
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Download  driving.DownloadService
	Artifact  driving.ArtifactService
	Settings  driving.SettingsService
	Session   driving.SessionService
}

// Bootstrap builds services from the global options. The returned cleanup
// runs after the command completes.
type Bootstrap func(opts Options) (*Services, func(), error)

var (
	captureService   driving.CaptureService
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
	downloadService  driving.DownloadService
	artifactService  driving.ArtifactService
	settingsService  driving.SettingsService
	sessionService   driving.SessionService
)

var (
	globalOpts Options
	bootstrap  Bootstrap
	cleanup    func()
)

var rootCmd = &cobra.Command{
	Use:   "chartrail",
	Short: "Capture, classify and retrieve patient portal records",
	Long: `chartrail keeps an append-only log of captured patient portal traffic,
classifies every event into clinical categories, and retrieves the documents
those events point at into a local artifact store.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.DataDir, "data-dir", "", "data directory (default ~/.chartrail)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.ConfigDir, "config-dir", "", "config directory (default ~/.chartrail)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that builds services before each command.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly. Tests use this instead of a bootstrap.
func SetServices(s Services) {
	captureService = s.Capture
	indexService = s.Index
	retrievalService = s.Retrieval
	downloadService = s.Download
	artifactService = s.Artifact
	settingsService = s.Settings
	sessionService = s.Session
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)
	if bootstrap == nil || cmd.Name() == versionCmd.Name() {
		return nil
	}
	svc, done, err := bootstrap(globalOpts)
	if err != nil {
		return err
	}
	SetServices(*svc)
	cleanup = done
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
	return nil
}

// loadSession reads a session context from a JSON file and makes it the
// active session.
func loadSession(path string) (domain.SessionContext, error) {
	if sessionService == nil {
		return domain.SessionContext{}, errors.New("session service not configured")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.SessionContext{}, fmt.Errorf("read session file: %w", err)
		}
		var session domain.SessionContext
		if err := json.Unmarshal(data, &session); err != nil {
			return domain.SessionContext{}, fmt.Errorf("parse session file: %w", err)
		}
		if err := sessionService.Set(session); err != nil {
			return domain.SessionContext{}, err
		}
	}
	session, err := sessionService.Current()
	if errors.Is(err, domain.ErrNoSession) {
		return domain.SessionContext{}, errors.New("no session: pass --session with a session JSON file")
	}
	return session, err
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
