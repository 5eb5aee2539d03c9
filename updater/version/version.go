package version

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrUnsupported 当前版本不属于任何已知发布通道
var ErrUnsupported = errors.New("unsupported")

// 数字段解析失败时使用的哨兵值，排序低于任何真实版本号
const sentinelComponent = -1

// Policy 版本比较策略。
// CommunityMarkers 是产品层面的特例：带这些后缀前缀的衍生构建
// （如 "140.0-gnu5"）视为不低于对应的官方发布，而不是按预发布处理。
// 这是领域策略而非通用 semver 规则，保持显式可覆盖。
type Policy struct {
	CommunityMarkers []string
}

// Default 默认比较策略
var Default = Policy{CommunityMarkers: []string{"gnu"}}

// Compare 使用默认策略比较两个版本串。
// 返回 1 表示 a 不低于 b，-1 表示 a 较旧，0 表示完全相等；
// ok=false 表示任一输入为空，无法比较。
func Compare(a, b string) (int, bool) {
	return Default.Compare(a, b)
}

func (p Policy) Compare(a, b string) (int, bool) {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0, false
	}

	aCore, aSuffix := splitSuffix(a)
	bCore, bSuffix := splitSuffix(b)

	ac := parseCore(aCore)
	bc := parseCore(bCore)
	for len(ac) < len(bc) {
		ac = append(ac, 0)
	}
	for len(bc) < len(ac) {
		bc = append(bc, 0)
	}
	for i := range ac {
		if ac[i] > bc[i] {
			return 1, true
		}
		if ac[i] < bc[i] {
			return -1, true
		}
	}

	// 数字主体相同，按后缀裁决
	if aSuffix == "" && bSuffix == "" {
		return 0, true
	}
	aMarked := p.isCommunityBuild(aSuffix)
	bMarked := p.isCommunityBuild(bSuffix)
	if aMarked != bMarked {
		if aMarked {
			return 1, true
		}
		return -1, true
	}
	// 无后缀为正式发布，高于预发布
	if aSuffix == "" {
		return 1, true
	}
	if bSuffix == "" {
		return -1, true
	}
	if aSuffix == bSuffix {
		return 0, true
	}
	an, aNum := parseComponent(aSuffix)
	bn, bNum := parseComponent(bSuffix)
	if aNum && bNum {
		if an > bn {
			return 1, true
		}
		return -1, true
	}
	// 预发布标签按字典序，靠后的标签视为更新
	if aSuffix > bSuffix {
		return 1, true
	}
	return -1, true
}

// isCommunityBuild 后缀是否命中社区衍生构建标记
func (p Policy) isCommunityBuild(suffix string) bool {
	if suffix == "" {
		return false
	}
	lower := strings.ToLower(suffix)
	for _, marker := range p.CommunityMarkers {
		if marker != "" && strings.HasPrefix(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// channelFloor 通道底线：通道名、去掉扩展支持标记后的版本、主版本号
type channelFloor struct {
	Name    string
	Version string
	Floor   int
}

// DetectLongTermVariant 判断当前版本属于哪个发布通道。
// channels 形如 {"LATEST":"142.0","ESR":"140.1.0esr","ESR115":"115.6.0esr"}，
// 通道版本可带尾随扩展支持标记，比较前剥离。
// 自最新通道向旧通道遍历，取当前版本尚未跌出底线的最低通道；
// 比所有已知底线都旧时返回 ErrUnsupported，绝不给出猜测结果。
func (p Policy) DetectLongTermVariant(current string, channels map[string]string) (string, string, error) {
	curMajor := majorComponent(normalize(current))
	if curMajor == sentinelComponent {
		return "", "", ErrUnsupported
	}

	floors := make([]channelFloor, 0, len(channels))
	for name, v := range channels {
		v = strings.TrimRightFunc(normalize(v), unicode.IsLetter)
		major := majorComponent(v)
		if v == "" || major == sentinelComponent {
			continue
		}
		floors = append(floors, channelFloor{Name: name, Version: v, Floor: major})
	}
	sort.Slice(floors, func(i, j int) bool {
		if floors[i].Floor != floors[j].Floor {
			return floors[i].Floor > floors[j].Floor
		}
		r, ok := p.Compare(floors[i].Version, floors[j].Version)
		return ok && r > 0
	})

	for _, ch := range floors {
		if curMajor >= ch.Floor {
			return ch.Name, ch.Version, nil
		}
	}
	return "", "", ErrUnsupported
}

// DetectLongTermVariant 使用默认策略的通道归属判断
func DetectLongTermVariant(current string, channels map[string]string) (string, string, error) {
	return Default.DetectLongTermVariant(current, channels)
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "V")
	return v
}

func splitSuffix(v string) (string, string) {
	if idx := strings.Index(v, "-"); idx >= 0 {
		return v[:idx], v[idx+1:]
	}
	return v, ""
}

// parseCore 解析数字主体；坏段落只会排低，不会报错
func parseCore(core string) []int {
	parts := strings.Split(core, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, ok := parseComponent(p)
		if !ok {
			n = sentinelComponent
		}
		out[i] = n
	}
	return out
}

func parseComponent(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return sentinelComponent, false
	}
	return n, true
}

func majorComponent(v string) int {
	core, _ := splitSuffix(v)
	parts := parseCore(core)
	if len(parts) == 0 {
		return sentinelComponent
	}
	return parts[0]
}
