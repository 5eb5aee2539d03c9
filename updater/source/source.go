package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blang/semver"
	"github.com/ryan-steed-usa/moz-update-checker/updater/version"
)

// Kind 版本源的载荷形态
type Kind int

const (
	// KindFlatMap 通道名到版本串的扁平对象
	KindFlatMap Kind = iota
	// KindReleaseList 发布对象数组
	KindReleaseList
	// KindFeed 活动流，取第一条
	KindFeed
)

// Source 单个软件的上游版本源
type Source struct {
	ID              string
	Kind            Kind
	URL             string
	Channel         string // KindFlatMap 且不做通道归属时要查的通道名
	DetectVariant   bool   // 是否需要长期支持通道归属判断
	ReleaseNotesURL string
}

// 静态源表，按软件名（不区分大小写）索引。
// 未识别的软件一律落到不支持，不做猜测。
var table = map[string]Source{
	"firefox": {
		ID:              "firefox",
		Kind:            KindFlatMap,
		URL:             "https://product-details.mozilla.org/1.0/firefox_versions.json",
		DetectVariant:   true,
		ReleaseNotesURL: "https://www.mozilla.org/firefox/notes/",
	},
	"thunderbird": {
		ID:              "thunderbird",
		Kind:            KindFlatMap,
		URL:             "https://product-details.mozilla.org/1.0/thunderbird_versions.json",
		Channel:         "LATEST_THUNDERBIRD_VERSION",
		ReleaseNotesURL: "https://www.thunderbird.net/en-US/thunderbird/releases/",
	},
	"librewolf": {
		ID:      "librewolf",
		Kind:    KindReleaseList,
		URL:     "https://codeberg.org/api/v1/repos/librewolf/source/releases",
		Channel: "",
	},
	"nightly": {
		ID:      "nightly",
		Kind:    KindFeed,
		URL:     "https://product-details.mozilla.org/1.0/firefox_history_development_releases.json",
		Channel: "",
	},
	"demo": {
		ID:      "demo",
		Kind:    KindFlatMap,
		URL:     "http://127.0.0.1:0/demo_versions.json",
		Channel: "LATEST",
	},
}

// Resolve 按软件名查找版本源；未识别返回 version.ErrUnsupported
func Resolve(softwareName string) (Source, error) {
	s, ok := table[strings.ToLower(strings.TrimSpace(softwareName))]
	if !ok {
		return Source{}, fmt.Errorf("no version source for %q: %w", softwareName, version.ErrUnsupported)
	}
	return s, nil
}

// WithURL 返回替换了抓取地址的副本（测试与自建镜像用）
func (s Source) WithURL(url string) Source {
	s.URL = url
	return s
}

type release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

type feed struct {
	Entries []struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"entries"`
}

// Extract 从快照里取出可比较的最新版本串。
// 返回的 channel 仅在做了通道归属判断时非空。
func (s Source) Extract(payload json.RawMessage, currentVersion string, pol version.Policy) (latest string, channel string, err error) {
	switch s.Kind {
	case KindFlatMap:
		var channels map[string]string
		if err := json.Unmarshal(payload, &channels); err != nil {
			return "", "", fmt.Errorf("malformed channel map: %w", err)
		}
		if s.DetectVariant {
			name, floor, err := pol.DetectLongTermVariant(currentVersion, channels)
			if err != nil {
				return "", "", err
			}
			return floor, name, nil
		}
		key := s.Channel
		if key == "" {
			key = "LATEST"
		}
		v, ok := channels[key]
		if !ok || strings.TrimSpace(v) == "" {
			return "", "", fmt.Errorf("channel %q missing from snapshot", key)
		}
		return v, "", nil

	case KindReleaseList:
		var releases []release
		if err := json.Unmarshal(payload, &releases); err != nil {
			return "", "", fmt.Errorf("malformed release list: %w", err)
		}
		if len(releases) == 0 {
			return "", "", fmt.Errorf("release list is empty")
		}
		return newestRelease(releases), "", nil

	case KindFeed:
		var f feed
		if err := json.Unmarshal(payload, &f); err != nil {
			return "", "", fmt.Errorf("malformed feed: %w", err)
		}
		if len(f.Entries) == 0 {
			return "", "", fmt.Errorf("feed is empty")
		}
		v := f.Entries[0].Version
		if strings.TrimSpace(v) == "" {
			return "", "", fmt.Errorf("feed entry carries no version")
		}
		return v, "", nil
	}
	return "", "", fmt.Errorf("unknown source kind %d", s.Kind)
}

// newestRelease 在发布列表里选最新的正式版本；
// 都解析失败时退回第一个元素（列表约定按新到旧排列）
func newestRelease(releases []release) string {
	best := ""
	var bestVer semver.Version
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		tag := r.Version
		if tag == "" {
			tag = r.TagName
		}
		if tag == "" {
			tag = r.Name
		}
		parsed, err := semver.ParseTolerant(strings.TrimPrefix(tag, "v"))
		if err != nil {
			continue
		}
		if best == "" || parsed.GT(bestVer) {
			best = tag
			bestVer = parsed
		}
	}
	if best != "" {
		return best
	}
	if releases[0].Version != "" {
		return releases[0].Version
	}
	return releases[0].TagName
}
