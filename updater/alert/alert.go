package alert

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"sync"

	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
)

// Mode 告警方式
type Mode string

const (
	ModeBoth         Mode = "both"
	ModeTab          Mode = "tab"
	ModeNotification Mode = "notification"
	ModeDisabled     Mode = "disabled"
)

// Decision 告警判定结果
type Decision struct {
	OpenSurface bool
	Notify      bool
	Escalate    bool
}

// Decide 由检查结果与告警方式得出判定。
// UpToDate 和 Unknown 永不告警；
// 不支持的软件强制升级告警并无视 Disabled，由调用方落地终态处置。
func Decide(result checker.Result, mode Mode) Decision {
	if result.Status == checker.StatusError && result.ErrorCause == checker.CauseUnsupported {
		return Decision{OpenSurface: true, Notify: true, Escalate: true}
	}
	if result.Status != checker.StatusError && result.Status != checker.StatusUpdateAvailable {
		return Decision{}
	}
	if mode == ModeDisabled {
		return Decision{}
	}
	return Decision{
		OpenSurface: mode == ModeBoth || mode == ModeTab,
		Notify:      mode == ModeBoth || mode == ModeNotification,
	}
}

// Notifier 桌面通知投递
type Notifier interface {
	Notify(title, body string) error
}

// Gate 消费检查结果并执行告警副作用。
// LoadMode / EscalateUnsupported / OpenSurface 由装配方注入，
// 便于把配置存储与调度器排除在本包之外。
type Gate struct {
	LoadMode func() Mode
	// EscalateUnsupported 把告警方式改为 both、周期改为 0 并重建调度。
	// 不支持的安装是需要人工介入的终态，继续轮询只是空耗。
	EscalateUnsupported func()
	Notifier            Notifier
	OpenSurface         func(url string) error
	ReleaseNotesURL     func(result checker.Result) string

	mu        sync.Mutex
	escalated bool
}

// Handle 处理一条新的检查结果
func (g *Gate) Handle(result checker.Result) {
	mode := ModeBoth
	if g.LoadMode != nil {
		mode = g.LoadMode()
	}
	d := Decide(result, mode)

	if d.Escalate {
		g.mu.Lock()
		already := g.escalated
		g.escalated = true
		g.mu.Unlock()
		if already {
			// 终态只通知一次
			return
		}
		if g.EscalateUnsupported != nil {
			g.EscalateUnsupported()
		}
	}

	if d.Notify && g.Notifier != nil {
		title, body := message(result)
		if err := g.Notifier.Notify(title, body); err != nil {
			log.Printf("failed to deliver notification: %v", err)
		}
	}
	if d.OpenSurface && g.OpenSurface != nil {
		url := ""
		if g.ReleaseNotesURL != nil {
			url = g.ReleaseNotesURL(result)
		}
		if url != "" {
			if err := g.OpenSurface(url); err != nil {
				log.Printf("failed to open release page: %v", err)
			}
		}
	}
}

func message(result checker.Result) (string, string) {
	switch {
	case result.ErrorCause == checker.CauseUnsupported:
		return "Unsupported software version",
			fmt.Sprintf("Version %s is no longer covered by any known release channel. Automatic checks have been disabled.", result.CurrentVersion)
	case result.Status == checker.StatusUpdateAvailable:
		return "Update available",
			fmt.Sprintf("Version %s is available (you are running %s).", result.LatestVersion, result.CurrentVersion)
	default:
		return "Update check failed",
			fmt.Sprintf("The last update check did not complete: %s", result.ErrorCause)
	}
}

// OpenBrowser 在默认浏览器打开页面
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
