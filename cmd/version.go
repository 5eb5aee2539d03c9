package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryan-steed-usa/moz-update-checker/utils"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印构建版本",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("moz-update-checker %s (hash: %s)\n", utils.CurrentVersion, utils.VersionHash)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
