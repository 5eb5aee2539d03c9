package models

// CheckRecord 每次完成的检查追加一条历史记录
type CheckRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Status         string    `json:"status" gorm:"type:varchar(30);index"`
	CurrentVersion string    `json:"current_version" gorm:"type:varchar(50)"`
	LatestVersion  string    `json:"latest_version" gorm:"type:varchar(50)"`
	Channel        string    `json:"channel" gorm:"type:varchar(30)"`
	ErrorCause     string    `json:"error_cause" gorm:"type:varchar(255)"`
	CheckedAt      LocalTime `json:"checked_at" gorm:"index"`
	CreatedAt      LocalTime `json:"created_at"`
}
