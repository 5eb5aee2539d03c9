package history

import (
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/database/dbcore"
	"github.com/ryan-steed-usa/moz-update-checker/database/models"
)

// Append 追加一条检查历史
func Append(record models.CheckRecord) error {
	record.CreatedAt = models.LocalTime(time.Now())
	return dbcore.GetDBInstance().Create(&record).Error
}

// Recent 返回最近 limit 条检查历史，新的在前
func Recent(limit int) ([]models.CheckRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	db := dbcore.GetDBInstance()
	var records []models.CheckRecord
	if err := db.Order("checked_at desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Prune 清理 cutoff 之前的历史
func Prune(cutoff time.Time) error {
	return dbcore.GetDBInstance().Where("checked_at < ?", cutoff).Delete(&models.CheckRecord{}).Error
}
