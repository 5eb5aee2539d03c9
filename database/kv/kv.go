package kv

import (
	"sync"
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 跨执行上下文共享的键值存储。
// 约定：每个键按整体替换写入（原子 read-modify-write），不支持跨键事务。
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	// Update 对单个键做原子读改写。fn 返回 (新值, 是否写入)。
	Update(key string, fn func(current string, exists bool) (string, bool)) error
}

// GormStore 基于数据库的实现，sqlite 文件或 mysql 均可承载多进程访问
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(key string) (string, bool, error) {
	var entry models.KVEntry
	// map 条件让 gorm 给列名加引号，key 在 mysql 里是保留字
	err := s.db.Where(map[string]interface{}{"key": key}).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(key, value string) error {
	entry := models.KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: models.LocalTime(time.Now()),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Remove(key string) error {
	return s.db.Where(map[string]interface{}{"key": key}).Delete(&models.KVEntry{}).Error
}

// rowLock 读改写期间锁住目标行。mysql 默认 REPEATABLE READ 下，
// 普通 SELECT 看不到并发事务的写入，两个事务会同时判定键不存在并各自
// upsert 成功；FOR UPDATE 让后来的事务阻塞或因死锁回滚。
// sqlite 不支持 FOR UPDATE 语法，其写事务本身互斥，无需加锁。
func rowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *GormStore) Update(key string, fn func(current string, exists bool) (string, bool)) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var entry models.KVEntry
		err := rowLock(tx).Where(map[string]interface{}{"key": key}).First(&entry).Error
		exists := err == nil
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		next, write := fn(entry.Value, exists)
		if !write {
			return nil
		}
		updated := models.KVEntry{
			Key:       key,
			Value:     next,
			UpdatedAt: models.LocalTime(time.Now()),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&updated).Error
	})
}

// MemoryStore 进程内实现，用于测试和无持久化场景
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Update(key string, fn func(current string, exists bool) (string, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.data[key]
	next, write := fn(current, exists)
	if write {
		s.data[key] = next
	}
	return nil
}
