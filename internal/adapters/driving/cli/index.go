package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

var (
	indexForce bool

	queryPatient    string
	queryCategory   string
	querySubcat     string
	querySourceType string
	queryEndpoint   string
	queryVersion    string
	queryMinConf    float64
	queryLimit      int
	queryJSON       bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain and query the classification index",
}

var indexRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify every logged event",
	Long: `Streams the whole event log through the classifier.

Events that already have an entry at the current indexer version are skipped
unless --force is given. Existing entries are never removed.`,
	RunE: runIndexRun,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query index entries",
	Long:  `Lists matching index entries, most recent first.`,
	RunE:  runIndexQuery,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts per category",
	RunE:  runIndexStats,
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index events as they are logged",
	Long:  `Follows the event log and classifies new events until interrupted.`,
	RunE:  runIndexWatch,
}

func init() {
	indexRunCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "reindex events already indexed at this version")

	indexQueryCmd.Flags().StringVarP(&queryPatient, "patient", "p", "", "patient ID")
	indexQueryCmd.Flags().StringVarP(&queryCategory, "category", "c", "", "category")
	indexQueryCmd.Flags().StringVar(&querySubcat, "subcategory", "", "subcategory")
	indexQueryCmd.Flags().StringVar(&querySourceType, "source-type", "", "observed, triggered or explored")
	indexQueryCmd.Flags().StringVar(&queryEndpoint, "endpoint", "", "normalised endpoint pattern")
	indexQueryCmd.Flags().StringVar(&queryVersion, "indexer-version", "", "indexer version")
	indexQueryCmd.Flags().Float64Var(&queryMinConf, "min-confidence", 0, "minimum confidence")
	indexQueryCmd.Flags().IntVarP(&queryLimit, "limit", "n", domain.DefaultIndexQueryLimit, "maximum number of entries")
	indexQueryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")

	indexCmd.AddCommand(indexRunCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexWatchCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRun(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	cmd.Printf("Reindexing with indexer version %s...\n", indexService.Version())
	stats, err := indexService.ReindexAll(cmd.Context(), indexForce)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Scanned: %d  Indexed: %d  Skipped: %d  Errors: %d\n",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Errors)

	categories := make([]domain.Category, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, c := range categories {
		cmd.Printf("  %-16s %d\n", c, stats.ByCategory[c])
	}
	return nil
}

func runIndexQuery(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	sourceType := domain.SourceType(querySourceType)
	if sourceType != "" && !sourceType.IsValid() {
		return fmt.Errorf("invalid source type %q", querySourceType)
	}
	filter := domain.IndexFilter{
		PatientID:       queryPatient,
		Category:        domain.Category(queryCategory),
		Subcategory:     querySubcat,
		SourceType:      sourceType,
		EndpointPattern: queryEndpoint,
		IndexerVersion:  queryVersion,
	}

	entries, err := indexService.Query(cmd.Context(), filter, queryMinConf, queryLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		cmd.Println("No matching entries.")
		return nil
	}

	for i := range entries {
		e := &entries[i]
		cmd.Printf("%s  %-28s %.2f  %s\n", e.EventID, categoryLabel(*e), e.Confidence, e.EndpointPattern)
	}
	cmd.Printf("\nTotal: %d entries\n", len(entries))
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	counts, err := indexService.CategoryStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	if len(counts) == 0 {
		cmd.Println("Index is empty.")
		return nil
	}

	total := 0
	for _, c := range counts {
		cmd.Printf("  %-16s %d\n", c.Category, c.Count)
		total += c.Count
	}
	cmd.Printf("\nTotal: %d entries\n", total)
	return nil
}

func runIndexWatch(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	cmd.Println("Watching event log. Press Ctrl+C to stop.")
	if err := indexService.Watch(cmd.Context()); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
