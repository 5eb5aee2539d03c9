package identity

import (
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

// Provider 被监测软件的身份来源（名称与当前版本）
type Provider interface {
	Resolve() (name string, version string, err error)
}

// Static 配置直给的身份
type Static struct {
	Name    string
	Version string
}

func (s Static) Resolve() (string, string, error) {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Version) == "" {
		return "", "", fmt.Errorf("software name and version must be configured")
	}
	return strings.TrimSpace(s.Name), strings.TrimSpace(s.Version), nil
}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+(?:[a-z]+\d*)?(?:-[0-9A-Za-z.]+)?`)

// Probe 通过执行本地命令（如 firefox --version）探测当前版本
type Probe struct {
	Name    string
	Command string
}

func (p Probe) Resolve() (string, string, error) {
	if strings.TrimSpace(p.Command) == "" {
		return "", "", fmt.Errorf("no version command configured")
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("powershell", "-NoProfile", "-Command", p.Command)
	} else {
		cmd = exec.Command("sh", "-c", p.Command)
	}
	out, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("version command failed: %w", err)
	}
	ver := versionPattern.FindString(string(out))
	if ver == "" {
		return "", "", fmt.Errorf("no version found in command output %q", strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(p.Name), ver, nil
}
