package cache

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/database/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	c := New(kv.NewMemoryStore())
	payload := json.RawMessage(`{"LATEST":"1.2.3"}`)

	require.NoError(t, c.StoreSnapshot("demo", payload))

	entry, ok := c.Snapshot("demo")
	require.True(t, ok)
	assert.Equal(t, "demo", entry.SourceID)
	assert.JSONEq(t, string(payload), string(entry.Payload))
	assert.Less(t, entry.Age(), DefaultSnapshotTTL)
}

func TestSnapshotSuperseded(t *testing.T) {
	c := New(kv.NewMemoryStore())
	require.NoError(t, c.StoreSnapshot("demo", json.RawMessage(`{"LATEST":"1.0"}`)))
	require.NoError(t, c.StoreSnapshot("demo", json.RawMessage(`{"LATEST":"2.0"}`)))

	entry, ok := c.Snapshot("demo")
	require.True(t, ok)
	// 刷新整体覆盖，不做合并
	assert.JSONEq(t, `{"LATEST":"2.0"}`, string(entry.Payload))
}

func TestSnapshotSharedAcrossInstances(t *testing.T) {
	store := kv.NewMemoryStore()
	writer := New(store)
	reader := New(store)

	require.NoError(t, writer.StoreSnapshot("demo", json.RawMessage(`{"LATEST":"1.0"}`)))

	entry, ok := reader.Snapshot("demo")
	require.True(t, ok)
	assert.JSONEq(t, `{"LATEST":"1.0"}`, string(entry.Payload))
}

func TestLeaseMutualExclusion(t *testing.T) {
	store := kv.NewMemoryStore()
	a := New(store)
	b := New(store)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = a.AcquireLease() }()
	go func() { defer wg.Done(); results[1] = b.AcquireLease() }()
	wg.Wait()

	// 释放前恰好一个成功
	assert.NotEqual(t, results[0], results[1])

	a.ReleaseLease()
	assert.True(t, New(store).AcquireLease())
}

func TestLeaseDeniedWhileHeld(t *testing.T) {
	store := kv.NewMemoryStore()
	c := New(store)
	require.True(t, c.AcquireLease())
	assert.False(t, c.AcquireLease())
	assert.False(t, New(store).AcquireLease())

	c.ReleaseLease()
	assert.True(t, c.AcquireLease())
}

func TestStaleLeaseSelfHeals(t *testing.T) {
	store := kv.NewMemoryStore()
	raw, err := json.Marshal(leaseRecord{
		Owner:     "dead-process",
		ExpiresAt: time.Now().Add(-time.Second),
	})
	require.NoError(t, err)
	require.NoError(t, store.Set("check/lease", string(raw)))

	// 过期租约视同不存在
	assert.True(t, New(store).AcquireLease())
}
