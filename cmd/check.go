package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryan-steed-usa/moz-update-checker/database/dbcore"
	dbsettings "github.com/ryan-steed-usa/moz-update-checker/database/settings"
	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
)

var flagNoCache bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "立即执行一次检查并输出结论",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbcore.Driver = flagDriver
		dbcore.DSN = flagDSN
		if err := dbcore.InitDatabase(); err != nil {
			return err
		}
		s, err := dbsettings.Load()
		if err != nil {
			return err
		}
		if err := applyFlagOverrides(s); err != nil {
			return err
		}

		ck := buildChecker()
		result := ck.Run(context.Background(), !flagNoCache)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		if result.Status == checker.StatusError {
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "绕过缓存强制完整检查")
	rootCmd.AddCommand(checkCmd)
}
