package cmd

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryan-steed-usa/moz-update-checker/api"
	"github.com/ryan-steed-usa/moz-update-checker/database/dbcore"
	"github.com/ryan-steed-usa/moz-update-checker/database/history"
	"github.com/ryan-steed-usa/moz-update-checker/database/kv"
	"github.com/ryan-steed-usa/moz-update-checker/database/models"
	dbsettings "github.com/ryan-steed-usa/moz-update-checker/database/settings"
	"github.com/ryan-steed-usa/moz-update-checker/updater/alert"
	"github.com/ryan-steed-usa/moz-update-checker/updater/cache"
	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
	"github.com/ryan-steed-usa/moz-update-checker/updater/fetch"
	"github.com/ryan-steed-usa/moz-update-checker/updater/identity"
	"github.com/ryan-steed-usa/moz-update-checker/updater/schedule"
	"github.com/ryan-steed-usa/moz-update-checker/updater/source"
	"github.com/ryan-steed-usa/moz-update-checker/ws"
)

var (
	flagListen          string
	flagDriver          string
	flagDSN             string
	flagSoftware        string
	flagSoftwareVersion string
	flagVersionCommand  string
	flagWSAnyOrigin     bool
)

var rootCmd = &cobra.Command{
	Use:   "moz-update-checker",
	Short: "周期检查本地软件是否为最新发布版本",
	RunE:  runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDriver, "db-driver", "sqlite", "数据库驱动 (sqlite/mysql)")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "db-dsn", "./data/update-checker.db", "数据库连接串")
	rootCmd.PersistentFlags().StringVar(&flagSoftware, "software", "", "被监测软件名（覆盖存量配置）")
	rootCmd.PersistentFlags().StringVar(&flagSoftwareVersion, "software-version", "", "被监测软件当前版本（覆盖存量配置）")
	rootCmd.PersistentFlags().StringVar(&flagVersionCommand, "version-command", "", "探测当前版本的命令（覆盖存量配置）")
	rootCmd.Flags().StringVar(&flagListen, "listen", "127.0.0.1:25860", "HTTP 监听地址")
	rootCmd.Flags().BoolVar(&flagWSAnyOrigin, "ws-allow-any-origin", false, "放开 websocket 跨源握手（调试/反代场景）")
}

// Execute 程序入口
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// settingsIdentity 每次解析时读取最新配置，PATCH 后立即生效
type settingsIdentity struct{}

func (settingsIdentity) Resolve() (string, string, error) {
	s, err := dbsettings.Load()
	if err != nil {
		return "", "", err
	}
	if s.VersionCommand != "" {
		return identity.Probe{Name: s.SoftwareName, Command: s.VersionCommand}.Resolve()
	}
	return identity.Static{Name: s.SoftwareName, Version: s.SoftwareVersion}.Resolve()
}

func applyFlagOverrides(s *models.Settings) error {
	changed := false
	if flagSoftware != "" && flagSoftware != s.SoftwareName {
		s.SoftwareName = flagSoftware
		changed = true
	}
	if flagSoftwareVersion != "" && flagSoftwareVersion != s.SoftwareVersion {
		s.SoftwareVersion = flagSoftwareVersion
		changed = true
	}
	if flagVersionCommand != "" && flagVersionCommand != s.VersionCommand {
		s.VersionCommand = flagVersionCommand
		changed = true
	}
	if !changed {
		return nil
	}
	return dbsettings.Overwrite(s)
}

func buildChecker() *checker.Checker {
	store := kv.NewGormStore(dbcore.GetDBInstance())
	pipeline := fetch.NewPipeline(cache.New(store))
	ck := checker.New(settingsIdentity{}, pipeline, store)
	ck.History = func(r checker.Result) {
		err := history.Append(models.CheckRecord{
			Status:         string(r.Status),
			CurrentVersion: r.CurrentVersion,
			LatestVersion:  r.LatestVersion,
			Channel:        r.Channel,
			ErrorCause:     r.ErrorCause,
			CheckedAt:      models.LocalTime(r.CheckedAt),
		})
		if err != nil {
			log.Printf("failed to append check history: %v", err)
		}
	}
	return ck
}

func runDaemon(cmd *cobra.Command, args []string) error {
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

	lastChecked := func() (time.Time, bool) {
		r, ok := ck.LastResult()
		if !ok {
			return time.Time{}, false
		}
		return r.CheckedAt, true
	}
	reconciler := schedule.New(ck.Run, lastChecked)
	defer reconciler.Stop()

	gate := &alert.Gate{
		LoadMode: func() alert.Mode {
			cur, err := dbsettings.Load()
			if err != nil {
				return alert.ModeBoth
			}
			return alert.Mode(cur.AlertMode)
		},
		EscalateUnsupported: func() {
			cur, err := dbsettings.Load()
			if err != nil {
				log.Printf("failed to load settings for escalation: %v", err)
				return
			}
			log.Printf("warning: software is unsupported, disabling periodic checks and forcing full alerting")
			cur.AlertMode = string(alert.ModeBoth)
			cur.CheckIntervalMinutes = 0
			if err := dbsettings.Overwrite(cur); err != nil {
				log.Printf("failed to persist escalation: %v", err)
			}
			reconciler.Apply(0, true)
		},
		Notifier:    alert.NewNotifier(),
		OpenSurface: alert.OpenBrowser,
		ReleaseNotesURL: func(r checker.Result) string {
			cur, err := dbsettings.Load()
			if err != nil {
				return ""
			}
			src, err := source.Resolve(cur.SoftwareName)
			if err != nil {
				return ""
			}
			return src.ReleaseNotesURL
		},
	}

	ws.AllowAnyOrigin = flagWSAnyOrigin
	ck.Subscribe(func(r checker.Result) { ws.BroadcastResult(r) })
	ck.Subscribe(gate.Handle)

	reconciler.Apply(s.CheckIntervalMinutes, false)

	// 启动即做一次缓存友好的检查，避免首个周期的空窗
	go ck.Run(context.Background(), true)

	api.Init(ck, reconciler)
	router := api.SetupRouter()
	listen := flagListen
	if strings.TrimSpace(listen) == "" {
		listen = "127.0.0.1:25860"
	}
	log.Printf("listening on %s", listen)
	return router.Run(listen)
}
