package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ryan-steed-usa/moz-update-checker/database/history"
	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
	"github.com/ryan-steed-usa/moz-update-checker/utils"
)

// GetStatus 返回当前检查结论；从未检查过时为 Unknown
func GetStatus(c *gin.Context) {
	ck := getChecker()
	if ck == nil {
		RespondError(c, http.StatusServiceUnavailable, "检查器尚未就绪")
		return
	}
	result, ok := ck.LastResult()
	if !ok {
		result = checker.Result{Status: checker.StatusUnknown, CheckedAt: time.Time{}}
	}
	RespondSuccess(c, result)
}

// GetHistory 返回最近的检查历史
func GetHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			RespondError(c, http.StatusBadRequest, "无效的 limit 参数")
			return
		}
		limit = parsed
	}
	records, err := history.Recent(limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "获取检查历史失败: "+err.Error())
		return
	}
	RespondSuccess(c, records)
}

// GetHealth 存活探针
func GetHealth(c *gin.Context) {
	RespondSuccess(c, gin.H{
		"version": utils.CurrentVersion,
		"hash":    utils.VersionHash,
	})
}
