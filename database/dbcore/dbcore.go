package dbcore

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ryan-steed-usa/moz-update-checker/database/models"
	logutil "github.com/ryan-steed-usa/moz-update-checker/utils/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	instance *gorm.DB
	initOnce sync.Once
	initErr  error

	// 默认配置，可在 InitDatabase 前由 cmd 覆盖
	Driver = "sqlite"
	DSN    = "./data/update-checker.db"
)

// InitDatabase 打开数据库并执行迁移，只会执行一次
func InitDatabase() error {
	initOnce.Do(func() {
		instance, initErr = open(Driver, DSN)
		if initErr != nil {
			return
		}
		initErr = migrate(instance)
	})
	return initErr
}

func open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(logutil.GormLogLevel()),
	}
	switch driver {
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	default:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, err
			}
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.KVEntry{},
		&models.Settings{},
		&models.CheckRecord{},
	)
}

// GetDBInstance 获取全局数据库实例
func GetDBInstance() *gorm.DB {
	if instance == nil {
		if err := InitDatabase(); err != nil {
			log.Fatalf("failed to initialize database: %v", err)
		}
	}
	return instance
}

// SetDBInstanceForTesting 测试用：替换全局实例
func SetDBInstanceForTesting(db *gorm.DB) {
	initOnce.Do(func() {})
	instance = db
}
