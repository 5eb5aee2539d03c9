package models

// KVEntry 跨进程共享的键值记录（快照缓存、运行租约、检查结果）
// 每个键整体覆写，读方不会观察到半更新状态
type KVEntry struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(191)"`
	Value     string    `json:"value" gorm:"type:longtext"`
	UpdatedAt LocalTime `json:"updated_at"`
}
