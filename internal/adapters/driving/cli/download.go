package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

var (
	downloadSession    string
	downloadFilename   string
	downloadNoFallback bool
	downloadBatch      string
	downloadJSON       bool
)

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a document by URL",
	Long: `Downloads one document, or every item of a --batch file, into the
artifact store. Direct fetch with the session cookies is tried first; the
fallback service is used when it fails and is configured.

A batch file is a JSON array of {"url": "...", "filename": "..."} objects.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

var fallbackCmd = &cobra.Command{
	Use:   "fallback",
	Short: "Fallback retrieval service commands",
}

var fallbackHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the fallback service",
	RunE:  runFallbackHealth,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadSession, "session", "s", "", "session JSON file")
	downloadCmd.Flags().StringVarP(&downloadFilename, "filename", "o", "", "filename hint")
	downloadCmd.Flags().BoolVar(&downloadNoFallback, "no-fallback", false, "never use the fallback service")
	downloadCmd.Flags().StringVarP(&downloadBatch, "batch", "b", "", "JSON file of download requests")
	downloadCmd.Flags().BoolVar(&downloadJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(downloadCmd)

	fallbackCmd.AddCommand(fallbackHealthCmd)
	rootCmd.AddCommand(fallbackCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if downloadService == nil {
		return errors.New("download service not configured")
	}
	if (len(args) == 0) == (downloadBatch == "") {
		return errors.New("give either a URL or --batch")
	}
	session, err := loadSession(downloadSession)
	if err != nil {
		return err
	}

	var outcomes []domain.DownloadOutcome
	if downloadBatch != "" {
		items, err := readBatch(downloadBatch)
		if err != nil {
			return err
		}
		outcomes = downloadService.BatchDownload(cmd.Context(), session, items)
	} else {
		outcome := downloadService.Download(cmd.Context(), session, args[0], downloadFilename, downloadNoFallback)
		outcomes = append(outcomes, outcome)
	}

	if downloadJSON {
		return printJSON(cmd, outcomes)
	}
	return printOutcomes(cmd, outcomes)
}

func readBatch(path string) ([]domain.DownloadRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var items []domain.DownloadRequest
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	return items, nil
}

func runFallbackHealth(cmd *cobra.Command, _ []string) error {
	if downloadService == nil {
		return errors.New("download service not configured")
	}

	health, err := downloadService.FallbackHealth(cmd.Context())
	if errors.Is(err, domain.ErrFallbackNotConfigured) {
		cmd.Println("Fallback service: not configured")
		cmd.Println("Set it with 'chartrail settings set fallback.url <url>'.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fallback health check failed: %w", err)
	}

	cmd.Printf("Fallback service: %s\n", okLabel(health.OK))
	cmd.Printf("Login configured: %s\n", yesNo(health.LoginConfigured))
	return nil
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "unhealthy"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
