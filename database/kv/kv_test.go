package kv

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ryan-steed-usa/moz-update-checker/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.KVEntry{}))
	t.Cleanup(func() {
		db.Where("1 = 1").Delete(&models.KVEntry{})
	})
	return NewGormStore(db)
}

func testStoreContract(t *testing.T, store Store) {
	t.Helper()

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("a", "1"))
	v, ok, err := store.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// 整体覆写
	require.NoError(t, store.Set("a", "2"))
	v, _, _ = store.Get("a")
	assert.Equal(t, "2", v)

	require.NoError(t, store.Remove("a"))
	_, ok, err = store.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)

	// Update: 不存在时创建
	err = store.Update("b", func(current string, exists bool) (string, bool) {
		assert.False(t, exists)
		return "init", true
	})
	require.NoError(t, err)
	v, _, _ = store.Get("b")
	assert.Equal(t, "init", v)

	// Update: 返回 false 不写入
	err = store.Update("b", func(current string, exists bool) (string, bool) {
		assert.True(t, exists)
		assert.Equal(t, "init", current)
		return "ignored", false
	})
	require.NoError(t, err)
	v, _, _ = store.Get("b")
	assert.Equal(t, "init", v)
}

func TestGormStore(t *testing.T) {
	testStoreContract(t, newTestStore(t))
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

// mysql REPEATABLE READ 下无锁读会让两个并发 Update 同时判定键不存在，
// 双双 upsert 成功；读改写必须带排它行锁
func TestUpdateTakesRowLockPerDialect(t *testing.T) {
	t.Run("mysql 读加 FOR UPDATE", func(t *testing.T) {
		db, err := gorm.Open(mysql.New(mysql.Config{
			DSN:                       "root@tcp(127.0.0.1:3306)/placeholder",
			SkipInitializeWithVersion: true,
		}), &gorm.Config{
			DryRun:               true,
			DisableAutomaticPing: true,
			Logger:               logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err)

		stmt := rowLock(db).Where(map[string]interface{}{"key": "check/lease"}).Find(&models.KVEntry{}).Statement
		assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")
		// key 是 mysql 保留字，列名必须带引号
		assert.Contains(t, stmt.SQL.String(), "`key`")
	})

	t.Run("sqlite 不生成 FOR UPDATE", func(t *testing.T) {
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			DryRun: true,
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err)

		stmt := rowLock(db).Where(map[string]interface{}{"key": "check/lease"}).Find(&models.KVEntry{}).Statement
		assert.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
	})
}

func TestMemoryStoreConcurrentUpdate(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Update("counter", func(current string, exists bool) (string, bool) {
				return current + "x", true
			})
			_ = n
		}(i)
	}
	wg.Wait()
	v, ok, err := store.Get("counter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, v, 50, fmt.Sprintf("期望 50 次原子读改写全部生效, got %d", len(v)))
}
