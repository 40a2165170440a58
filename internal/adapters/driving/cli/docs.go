package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

var (
	docsJSON         bool
	docsSession      string
	docsNoFallback   bool
	docsListPatient  string
	docsDownloadable bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Find and retrieve documents referenced by events",
}

var docsRefsCmd = &cobra.Command{
	Use:   "refs [event-id]",
	Short: "List document references in an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsRefs,
}

var docsMissingCmd = &cobra.Command{
	Use:   "missing [event-id]",
	Short: "List referenced documents not yet stored",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsMissing,
}

var docsFetchCmd = &cobra.Command{
	Use:   "fetch [event-id]",
	Short: "Download the missing documents of an event",
	Long: `Downloads every missing document of an event that has a download URL.

Each document is fetched directly with the session cookies first. When that
fails and a fallback service is configured, the fallback is tried.
Stored documents are recorded so later runs skip them.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocsFetch,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retrieved documents",
	RunE:  runDocsList,
}

func init() {
	docsRefsCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsMissingCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsMissingCmd.Flags().BoolVarP(&docsDownloadable, "downloadable", "d", false, "only documents with a download URL")
	docsFetchCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsFetchCmd.Flags().StringVarP(&docsSession, "session", "s", "", "session JSON file")
	docsFetchCmd.Flags().BoolVar(&docsNoFallback, "no-fallback", false, "never use the fallback service")
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsListCmd.Flags().StringVarP(&docsListPatient, "patient", "p", "", "only documents for this patient")

	docsCmd.AddCommand(docsRefsCmd)
	docsCmd.AddCommand(docsMissingCmd)
	docsCmd.AddCommand(docsFetchCmd)
	docsCmd.AddCommand(docsListCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsRefs(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	refs, err := retrievalService.Refs(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to extract references: %w", err)
	}

	if docsJSON {
		return printJSON(cmd, refs)
	}
	if len(refs) == 0 {
		cmd.Println("No document references found.")
		return nil
	}

	for i := range refs {
		printRef(cmd, &refs[i])
	}
	cmd.Printf("Total: %d references\n", len(refs))
	return nil
}

func runDocsMissing(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	missing, err := retrievalService.Missing(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to detect missing documents: %w", err)
	}
	if docsDownloadable {
		kept := missing[:0]
		for _, m := range missing {
			if m.Downloadable() {
				kept = append(kept, m)
			}
		}
		missing = kept
	}

	if docsJSON {
		return printJSON(cmd, missing)
	}
	if len(missing) == 0 {
		cmd.Println("All referenced documents are stored.")
		return nil
	}

	for i := range missing {
		printRef(cmd, &missing[i].Ref)
		cmd.Printf("    Reason: %s\n\n", missing[i].Reason)
	}
	cmd.Printf("Total: %d missing\n", len(missing))
	return nil
}

func runDocsFetch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	session, err := loadSession(docsSession)
	if err != nil {
		return err
	}

	outcomes, err := retrievalService.Retrieve(cmd.Context(), session, args[0], docsNoFallback)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if docsJSON {
		return printJSON(cmd, outcomes)
	}
	if len(outcomes) == 0 {
		cmd.Println("Nothing to fetch.")
		return nil
	}
	return printOutcomes(cmd, outcomes)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if artifactService == nil {
		return errors.New("artifact service not configured")
	}

	records, err := artifactService.Documents(cmd.Context(), docsListPatient)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if docsJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No documents retrieved yet.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmd.Printf("%s -> %s  (%s, %s)\n", r.DocID, r.ArtifactID, r.Stage, r.StoredAt.Format("2006-01-02 15:04:05"))
		if r.Title != "" {
			cmd.Printf("    Title: %s\n", r.Title)
		}
	}
	cmd.Printf("\nTotal: %d documents\n", len(records))
	return nil
}

func printRef(cmd *cobra.Command, r *domain.DocumentRef) {
	cmd.Printf("  %s\n", r.DocID)
	if r.Title != "" {
		cmd.Printf("    Title: %s\n", r.Title)
	}
	if r.DocType != "" {
		cmd.Printf("    Type:  %s\n", r.DocType)
	}
	if r.DownloadURL != "" {
		cmd.Printf("    URL:   %s\n", r.DownloadURL)
	}
	cmd.Printf("    File:  %s\n", r.FilenameHint)
}

// printOutcomes prints one line per download and fails when any failed.
func printOutcomes(cmd *cobra.Command, outcomes []domain.DownloadOutcome) error {
	failed := 0
	for i := range outcomes {
		o := &outcomes[i]
		if o.OK {
			cmd.Printf("  ok      %s -> %s (%s)\n", o.URL, o.Artifact.ArtifactID, o.Artifact.Provenance.Stage())
			continue
		}
		failed++
		cmd.Printf("  failed  %s: %s\n", o.URL, o.Error)
	}
	cmd.Printf("\n%d succeeded, %d failed\n", len(outcomes)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(outcomes))
	}
	return nil
}
