package settings

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/database/dbcore"
	"github.com/ryan-steed-usa/moz-update-checker/database/models"
)

const (
	// MinIntervalMinutes 允许的最小检查周期（0 表示停用，单独放行）
	MinIntervalMinutes = 5
	// DefaultIntervalMinutes 非法值修正后的默认周期
	DefaultIntervalMinutes = 60
	// DefaultAlertMode 非法告警方式修正后的默认值
	DefaultAlertMode = "both"
)

var validAlertModes = map[string]bool{
	"both":         true,
	"tab":          true,
	"notification": true,
	"disabled":     true,
}

// Load 读取配置；不存在时写入默认行。
// 持久化的非法值会就地修正并以告警日志暴露，绝不静默忽略。
func Load() (*models.Settings, error) {
	db := dbcore.GetDBInstance()
	var s models.Settings
	err := db.First(&s).Error
	if err != nil {
		s = models.Settings{
			CheckIntervalMinutes: DefaultIntervalMinutes,
			AlertMode:            DefaultAlertMode,
			UpdatedAt:            models.LocalTime(time.Now()),
		}
		if err := db.Create(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	}

	corrected := false
	if s.CheckIntervalMinutes != 0 && (s.CheckIntervalMinutes < MinIntervalMinutes) {
		log.Printf("warning: stored check interval %d minutes is invalid, correcting to %d", s.CheckIntervalMinutes, DefaultIntervalMinutes)
		s.CheckIntervalMinutes = DefaultIntervalMinutes
		corrected = true
	}
	if mode := strings.ToLower(strings.TrimSpace(s.AlertMode)); !validAlertModes[mode] {
		log.Printf("warning: stored alert mode %q is invalid, correcting to %q", s.AlertMode, DefaultAlertMode)
		s.AlertMode = DefaultAlertMode
		corrected = true
	} else if mode != s.AlertMode {
		s.AlertMode = mode
		corrected = true
	}
	if corrected {
		s.UpdatedAt = models.LocalTime(time.Now())
		if err := db.Save(&s).Error; err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// ValidateInterval 校验检查周期；配置归设置方所有，非法值直接拒绝而不是收窄
func ValidateInterval(minutes int) error {
	if minutes == 0 {
		return nil
	}
	if minutes < MinIntervalMinutes {
		return fmt.Errorf("检查周期不能小于 %d 分钟（0 表示停用）", MinIntervalMinutes)
	}
	return nil
}

// ValidateAlertMode 校验告警方式
func ValidateAlertMode(mode string) error {
	if !validAlertModes[strings.ToLower(strings.TrimSpace(mode))] {
		return fmt.Errorf("未知的告警方式: %s", mode)
	}
	return nil
}

// Save 持久化配置（调用方需先通过校验）
func Save(s *models.Settings) error {
	if err := ValidateInterval(s.CheckIntervalMinutes); err != nil {
		return err
	}
	if err := ValidateAlertMode(s.AlertMode); err != nil {
		return err
	}
	s.AlertMode = strings.ToLower(strings.TrimSpace(s.AlertMode))
	s.UpdatedAt = models.LocalTime(time.Now())
	return dbcore.GetDBInstance().Save(s).Error
}

// Overwrite 跳过校验强制写入，仅供不支持软件的终态降级使用
func Overwrite(s *models.Settings) error {
	s.UpdatedAt = models.LocalTime(time.Now())
	return dbcore.GetDBInstance().Save(s).Error
}
