package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

var (
	artifactSubject string
	artifactLimit   int
	artifactOutput  string
	artifactJSON    bool
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Manage stored artifacts",
	Long:  `List, inspect, export or delete downloaded documents.`,
}

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifacts, newest first",
	RunE:  runArtifactList,
}

var artifactGetCmd = &cobra.Command{
	Use:   "get [artifact-id]",
	Short: "Show artifact metadata",
	Long:  `Shows the metadata and provenance of an artifact. Use --output to write its bytes to a file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactGet,
}

var artifactDeleteCmd = &cobra.Command{
	Use:   "delete [artifact-id]",
	Short: "Delete an artifact",
	Long:  `Deletes an artifact. Documents it satisfied are reported missing again.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactDelete,
}

var artifactStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the artifact store",
	RunE:  runArtifactStats,
}

func init() {
	artifactListCmd.Flags().StringVar(&artifactSubject, "subject", "", "only artifacts for this patient")
	artifactListCmd.Flags().IntVarP(&artifactLimit, "limit", "n", domain.DefaultArtifactListLimit, "maximum number of artifacts")
	artifactListCmd.Flags().BoolVar(&artifactJSON, "json", false, "output as JSON")
	artifactGetCmd.Flags().StringVarP(&artifactOutput, "output", "o", "", "write artifact bytes to this file")
	artifactGetCmd.Flags().BoolVar(&artifactJSON, "json", false, "output as JSON")

	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactGetCmd)
	artifactCmd.AddCommand(artifactDeleteCmd)
	artifactCmd.AddCommand(artifactStatsCmd)
	rootCmd.AddCommand(artifactCmd)
}

func runArtifactList(cmd *cobra.Command, _ []string) error {
	if artifactService == nil {
		return errors.New("artifact service not configured")
	}

	arts, err := artifactService.List(cmd.Context(), artifactSubject, artifactLimit)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	if artifactJSON {
		return printJSON(cmd, arts)
	}
	if len(arts) == 0 {
		cmd.Println("No artifacts stored.")
		return nil
	}

	for i := range arts {
		a := &arts[i]
		cmd.Printf("%s  %8s  %s  %s\n", a.ArtifactID, humanize.IBytes(uint64(a.SizeBytes)),
			a.StoredAt.Format("2006-01-02 15:04"), a.OriginalFilename)
	}
	cmd.Printf("\nTotal: %d artifacts\n", len(arts))
	return nil
}

func runArtifactGet(cmd *cobra.Command, args []string) error {
	if artifactService == nil {
		return errors.New("artifact service not configured")
	}

	art, err := artifactService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get artifact: %w", err)
	}

	if artifactOutput != "" {
		data, err := artifactService.Content(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to read artifact: %w", err)
		}
		if err := os.WriteFile(artifactOutput, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", artifactOutput, err)
		}
		cmd.Printf("Wrote %s to %s\n", humanize.IBytes(uint64(len(data))), artifactOutput)
		return nil
	}

	if artifactJSON {
		return printJSON(cmd, art)
	}

	p := art.Provenance
	cmd.Printf("Artifact: %s\n\n", art.ArtifactID)
	cmd.Printf("  File:     %s\n", art.OriginalFilename)
	cmd.Printf("  Type:     %s\n", art.MimeType)
	cmd.Printf("  Size:     %s\n", humanize.IBytes(uint64(art.SizeBytes)))
	cmd.Printf("  Stored:   %s\n", art.StoredAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Path:     %s\n", art.Path)
	cmd.Println("\n  Provenance:")
	cmd.Printf("    Source:   %s %s\n", p.HTTPMethod, p.SourceURL)
	cmd.Printf("    Stage:    %s\n", p.Stage())
	cmd.Printf("    Hash:     %s\n", p.ArtifactHash)
	if p.PatientHint != "" {
		cmd.Printf("    Patient:  %s\n", p.PatientHint)
	}
	if p.EncounterHint != "" {
		cmd.Printf("    Encounter: %s\n", p.EncounterHint)
	}
	return nil
}

func runArtifactDelete(cmd *cobra.Command, args []string) error {
	if artifactService == nil {
		return errors.New("artifact service not configured")
	}

	removed, err := artifactService.Delete(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	if !removed {
		cmd.Printf("Artifact %s not found.\n", args[0])
		return nil
	}
	cmd.Printf("Artifact %s deleted.\n", args[0])
	return nil
}

func runArtifactStats(cmd *cobra.Command, _ []string) error {
	if artifactService == nil {
		return errors.New("artifact service not configured")
	}

	stats, err := artifactService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Artifacts: %d\n", stats.Count)
	cmd.Printf("Size:      %s\n", humanize.IBytes(uint64(stats.TotalBytes)))
	cmd.Printf("Subjects:  %d\n", stats.Subjects)
	return nil
}
