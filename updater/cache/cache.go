package cache

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/ryan-steed-usa/moz-update-checker/database/kv"
)

const (
	leaseKey          = "check/lease"
	snapshotKeyPrefix = "snapshot/"

	// DefaultLeaseTTL 租约有效期：足够覆盖最坏情况的抓取加重试，
	// 又足够短，检查中途崩溃后能在一个典型周期内自愈
	DefaultLeaseTTL = 2 * time.Minute
	// DefaultSnapshotTTL 快照新鲜期
	DefaultSnapshotTTL = 5 * time.Minute
)

// Entry 单个版本源的快照缓存记录，刷新时整体覆盖，不做合并
type Entry struct {
	SourceID  string          `json:"source_id"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Age 快照距现在的时长
func (e *Entry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}

type leaseRecord struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LeasedCache 持久化 TTL 快照缓存加跨上下文运行租约。
// 快照与租约都落在共享存储里，独立进程间同样生效；
// 进程内用 go-cache 挡一层读，省去重复的存储读取与反序列化。
// 租约是协作式互斥：拿不到就立即返回，不自旋重试。
type LeasedCache struct {
	store    kv.Store
	local    *gocache.Cache
	owner    string
	LeaseTTL time.Duration
}

func New(store kv.Store) *LeasedCache {
	return &LeasedCache{
		store:    store,
		local:    gocache.New(DefaultSnapshotTTL, 10*time.Minute),
		owner:    uuid.NewString(),
		LeaseTTL: DefaultLeaseTTL,
	}
}

// Snapshot 读取某个源的快照；新鲜度由调用方按自己的 TTL 判断
func (c *LeasedCache) Snapshot(sourceID string) (*Entry, bool) {
	if v, ok := c.local.Get(snapshotKeyPrefix + sourceID); ok {
		if entry, ok := v.(*Entry); ok {
			return entry, true
		}
	}
	raw, ok, err := c.store.Get(snapshotKeyPrefix + sourceID)
	if err != nil {
		log.Printf("failed to read snapshot cache for %s: %v", sourceID, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Printf("corrupt snapshot cache for %s, discarding: %v", sourceID, err)
		_ = c.store.Remove(snapshotKeyPrefix + sourceID)
		return nil, false
	}
	c.local.SetDefault(snapshotKeyPrefix+sourceID, &entry)
	return &entry, true
}

// StoreSnapshot 写入快照，整体替换同源旧值
func (c *LeasedCache) StoreSnapshot(sourceID string, payload json.RawMessage) error {
	entry := &Entry{
		SourceID:  sourceID,
		Payload:   payload,
		FetchedAt: time.Now(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.store.Set(snapshotKeyPrefix+sourceID, string(raw)); err != nil {
		return err
	}
	c.local.SetDefault(snapshotKeyPrefix+sourceID, entry)
	return nil
}

// AcquireLease 申请运行租约。
// 已有未过期租约时返回 false 且不改动任何状态；
// 过期租约视为不存在，这是检查中途崩溃后的唯一恢复手段。
func (c *LeasedCache) AcquireLease() bool {
	acquired := false
	err := c.store.Update(leaseKey, func(current string, exists bool) (string, bool) {
		if exists {
			var rec leaseRecord
			if err := json.Unmarshal([]byte(current), &rec); err == nil && time.Now().Before(rec.ExpiresAt) {
				return "", false
			}
		}
		raw, err := json.Marshal(leaseRecord{
			Owner:     c.owner,
			ExpiresAt: time.Now().Add(c.LeaseTTL),
		})
		if err != nil {
			return "", false
		}
		acquired = true
		return string(raw), true
	})
	if err != nil {
		log.Printf("failed to acquire check lease: %v", err)
		return false
	}
	return acquired
}

// ReleaseLease 无条件清除租约
func (c *LeasedCache) ReleaseLease() {
	if err := c.store.Remove(leaseKey); err != nil {
		log.Printf("failed to release check lease: %v", err)
	}
}
