package main

import (
	"log"
	"log/slog"

	"github.com/ryan-steed-usa/moz-update-checker/cmd"
	"github.com/ryan-steed-usa/moz-update-checker/utils"
	logutil "github.com/ryan-steed-usa/moz-update-checker/utils/log"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if utils.VersionHash == "unknown" {
		logutil.SetupGlobalLogger(slog.LevelDebug)
		logutil.SetGormLogLevel(gormlogger.Info)
	} else {
		logutil.SetupGlobalLogger(slog.LevelInfo)
		logutil.SetGormLogLevel(gormlogger.Silent)
	}

	log.Printf("Update Checker %s (hash: %s)", utils.CurrentVersion, utils.VersionHash)

	cmd.Execute()
}
