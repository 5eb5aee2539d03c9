package utils

// 构建时通过 -ldflags 注入
var (
	CurrentVersion = "0.0.0-dev"
	VersionHash    = "unknown"
)
