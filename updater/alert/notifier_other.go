//go:build !windows

package alert

import (
	"log"
	"os/exec"
)

// DesktopNotifier 走 notify-send，不可用时退回日志输出
type DesktopNotifier struct{}

func NewNotifier() Notifier {
	return &DesktopNotifier{}
}

func (n *DesktopNotifier) Notify(title, body string) error {
	if path, err := exec.LookPath("notify-send"); err == nil {
		return exec.Command(path, title, body).Run()
	}
	log.Printf("notification: %s - %s", title, body)
	return nil
}
