package alert

import (
	"testing"

	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	update := checker.Result{Status: checker.StatusUpdateAvailable, LatestVersion: "2.0"}
	failed := checker.Result{Status: checker.StatusError, ErrorCause: checker.CauseTimedOut}
	unsupported := checker.Result{Status: checker.StatusError, ErrorCause: checker.CauseUnsupported}

	tests := []struct {
		name   string
		result checker.Result
		mode   Mode
		want   Decision
	}{
		{name: "both 模式全量告警", result: update, mode: ModeBoth, want: Decision{OpenSurface: true, Notify: true}},
		{name: "tab 模式只开页面", result: update, mode: ModeTab, want: Decision{OpenSurface: true}},
		{name: "notification 模式只通知", result: update, mode: ModeNotification, want: Decision{Notify: true}},
		{name: "disabled 模式静默", result: update, mode: ModeDisabled, want: Decision{}},
		{name: "最新版本不告警", result: checker.Result{Status: checker.StatusUpToDate}, mode: ModeBoth, want: Decision{}},
		{name: "Unknown 按设计静默", result: checker.Result{Status: checker.StatusUnknown}, mode: ModeBoth, want: Decision{}},
		{name: "错误结果按模式告警", result: failed, mode: ModeNotification, want: Decision{Notify: true}},
		{name: "不支持软件强制升级", result: unsupported, mode: ModeDisabled, want: Decision{OpenSurface: true, Notify: true, Escalate: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.result, tt.mode))
		})
	}
}

type recordingNotifier struct {
	titles []string
}

func (r *recordingNotifier) Notify(title, body string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestGateEscalatesOnce(t *testing.T) {
	notifier := &recordingNotifier{}
	escalations := 0
	g := &Gate{
		LoadMode:            func() Mode { return ModeDisabled },
		EscalateUnsupported: func() { escalations++ },
		Notifier:            notifier,
	}

	unsupported := checker.Result{Status: checker.StatusError, ErrorCause: checker.CauseUnsupported, CurrentVersion: "90.0"}
	g.Handle(unsupported)
	g.Handle(unsupported)

	assert.Equal(t, 1, escalations, "终态处置只执行一次")
	assert.Len(t, notifier.titles, 1, "终态只通知一次")
}

func TestGateOpensReleasePage(t *testing.T) {
	opened := ""
	g := &Gate{
		LoadMode:        func() Mode { return ModeTab },
		OpenSurface:     func(url string) error { opened = url; return nil },
		ReleaseNotesURL: func(checker.Result) string { return "https://example.org/notes" },
	}

	g.Handle(checker.Result{Status: checker.StatusUpdateAvailable, LatestVersion: "2.0"})
	assert.Equal(t, "https://example.org/notes", opened)
}

func TestGateSilentOnUpToDate(t *testing.T) {
	notifier := &recordingNotifier{}
	g := &Gate{
		LoadMode: func() Mode { return ModeBoth },
		Notifier: notifier,
	}

	g.Handle(checker.Result{Status: checker.StatusUpToDate})
	assert.Empty(t, notifier.titles)
}
