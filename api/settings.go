package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	dbsettings "github.com/ryan-steed-usa/moz-update-checker/database/settings"
)

// GetSettings 返回当前配置（非法存量值已被就地修正）
func GetSettings(c *gin.Context) {
	s, err := dbsettings.Load()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "读取配置失败: "+err.Error())
		return
	}
	RespondSuccess(c, s)
}

// UpdateSettingsRequest 可部分更新
type UpdateSettingsRequest struct {
	CheckIntervalMinutes *int    `json:"check_interval_minutes"`
	AlertMode            *string `json:"alert_mode"`
	SoftwareName         *string `json:"software_name"`
	SoftwareVersion      *string `json:"software_version"`
	VersionCommand       *string `json:"version_command"`
}

// UpdateSettings 更新配置。
// 非法值直接拒绝而不是收窄；周期变化后重建定时触发器。
func UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "无效的请求体")
		return
	}
	if req.CheckIntervalMinutes != nil {
		if err := dbsettings.ValidateInterval(*req.CheckIntervalMinutes); err != nil {
			RespondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.AlertMode != nil {
		if err := dbsettings.ValidateAlertMode(*req.AlertMode); err != nil {
			RespondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	s, err := dbsettings.Load()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "读取配置失败: "+err.Error())
		return
	}
	if req.CheckIntervalMinutes != nil {
		s.CheckIntervalMinutes = *req.CheckIntervalMinutes
	}
	if req.AlertMode != nil {
		s.AlertMode = *req.AlertMode
	}
	if req.SoftwareName != nil {
		s.SoftwareName = *req.SoftwareName
	}
	if req.SoftwareVersion != nil {
		s.SoftwareVersion = *req.SoftwareVersion
	}
	if req.VersionCommand != nil {
		s.VersionCommand = *req.VersionCommand
	}
	if err := dbsettings.Save(s); err != nil {
		RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if r := getReconciler(); r != nil && req.CheckIntervalMinutes != nil {
		r.Apply(s.CheckIntervalMinutes, false)
	}
	RespondSuccess(c, s)
}
