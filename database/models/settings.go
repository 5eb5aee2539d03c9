package models

// Settings 单行配置表（检查周期与告警方式）
type Settings struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	SoftwareName         string    `json:"software_name" gorm:"type:varchar(100)"`
	SoftwareVersion      string    `json:"software_version" gorm:"type:varchar(50)"`
	VersionCommand       string    `json:"version_command" gorm:"type:varchar(255)"`
	CheckIntervalMinutes int       `json:"check_interval_minutes" gorm:"default:60"`
	AlertMode            string    `json:"alert_mode" gorm:"type:varchar(20);default:'both'"`
	UpdatedAt            LocalTime `json:"updated_at"`
}
