//go:build windows

package alert

import (
	"gopkg.in/toast.v1"
)

// ToastNotifier Windows 桌面通知
type ToastNotifier struct {
	AppID string
}

func NewNotifier() Notifier {
	return &ToastNotifier{AppID: "Update Checker"}
}

func (n *ToastNotifier) Notify(title, body string) error {
	notification := toast.Notification{
		AppID:   n.AppID,
		Title:   title,
		Message: body,
	}
	return notification.Push()
}
