package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("chartrail version %s\n", version)
		if indexService != nil {
			cmd.Printf("indexer version %s\n", indexService.Version())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
