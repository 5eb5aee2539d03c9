package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/database/kv"
	"github.com/ryan-steed-usa/moz-update-checker/updater/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(store kv.Store) *Pipeline {
	p := NewPipeline(cache.New(store))
	p.Timeout = 2 * time.Second
	p.Retry = Retry{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxJitter: 0}
	return p
}

func TestFetchSuccessPopulatesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"LATEST":"1.2.3"}`))
	}))
	defer srv.Close()

	p := newTestPipeline(kv.NewMemoryStore())
	payload, err := p.Fetch(context.Background(), "demo", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"LATEST":"1.2.3"}`, string(payload))

	// TTL 内命中缓存，不触网也不申请租约
	payload, err = p.Fetch(context.Background(), "demo", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"LATEST":"1.2.3"}`, string(payload))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchExpiredCacheRefetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"LATEST":"2.0"}`))
	}))
	defer srv.Close()

	p := newTestPipeline(kv.NewMemoryStore())
	p.TTL = 0 // 立即过期

	_, err := p.Fetch(context.Background(), "demo", srv.URL)
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), "demo", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchRetriesOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"LATEST":"3.0"}`))
	}))
	defer srv.Close()

	p := newTestPipeline(kv.NewMemoryStore())
	payload, err := p.Fetch(context.Background(), "demo", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"LATEST":"3.0"}`, string(payload))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchExhaustedRetriesReturnsLastError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newTestPipeline(kv.NewMemoryStore())
	payload, err := p.Fetch(context.Background(), "demo", srv.URL)
	assert.Nil(t, payload)
	assert.ErrorContains(t, err, "unexpected status 502")
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := newTestPipeline(kv.NewMemoryStore())
	p.Timeout = 50 * time.Millisecond
	p.Retry = Retry{MaxAttempts: 2, BaseDelay: time.Millisecond}

	payload, err := p.Fetch(context.Background(), "demo", srv.URL)
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestFetchLeaseHeldShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := kv.NewMemoryStore()
	holder := cache.New(store)
	require.True(t, holder.AcquireLease())

	p := newTestPipeline(store)
	payload, err := p.Fetch(context.Background(), "demo", srv.URL)
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrCheckRunning)
}

func TestFetchInvalidJSONRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	p := newTestPipeline(kv.NewMemoryStore())
	payload, err := p.Fetch(context.Background(), "demo", srv.URL)
	assert.Nil(t, payload)
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestBackoffGrowsExponentially(t *testing.T) {
	r := Retry{MaxAttempts: 3, BaseDelay: time.Second}
	assert.Equal(t, time.Second, r.Backoff(0))
	assert.Equal(t, 2*time.Second, r.Backoff(1))
	assert.Equal(t, 4*time.Second, r.Backoff(2))

	jittered := Retry{MaxAttempts: 3, BaseDelay: time.Second, MaxJitter: time.Second}
	for i := 0; i < 50; i++ {
		d := jittered.Backoff(1)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}
