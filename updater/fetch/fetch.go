package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/updater/cache"
	"github.com/ryan-steed-usa/moz-update-checker/utils"
)

var (
	// ErrCheckRunning 租约被占用，已有检查在途。这不是失败。
	ErrCheckRunning = errors.New("check already running")
	// ErrTimedOut 请求超时
	ErrTimedOut = errors.New("timedout")
)

// Retry 重试策略：尝试总数、退避基数与抖动上限。
// 退避为 2^attempt 倍基数加随机抖动，避免大量安装同步重试。
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// DefaultRetry 默认重试策略
var DefaultRetry = Retry{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxJitter:   time.Second,
}

// Backoff 第 attempt 次失败后的等待时长
func (r Retry) Backoff(attempt int) time.Duration {
	d := r.BaseDelay * (1 << attempt)
	if r.MaxJitter > 0 {
		d += time.Duration(rand.Int63n(int64(r.MaxJitter)))
	}
	return d
}

// Pipeline 带超时、重试与 TTL 缓存的版本描述抓取管道
type Pipeline struct {
	Cache   *cache.LeasedCache
	Client  *http.Client
	Timeout time.Duration
	TTL     time.Duration
	Retry   Retry
}

func NewPipeline(c *cache.LeasedCache) *Pipeline {
	return &Pipeline{
		Cache:   c,
		Client:  &http.Client{},
		Timeout: 30 * time.Second,
		TTL:     cache.DefaultSnapshotTTL,
		Retry:   DefaultRetry,
	}
}

// Fetch 获取某个源的版本快照。
// 新鲜缓存直接命中，不申请租约也不触网；
// 租约被占用返回 ErrCheckRunning；
// 重试耗尽返回最后一次错误（超时归一为 ErrTimedOut）。
func (p *Pipeline) Fetch(ctx context.Context, sourceID, url string) (json.RawMessage, error) {
	if entry, ok := p.Cache.Snapshot(sourceID); ok && entry.Age() < p.TTL {
		return entry.Payload, nil
	}

	if !p.Cache.AcquireLease() {
		return nil, ErrCheckRunning
	}
	defer p.Cache.ReleaseLease()

	var lastErr error
	for attempt := 0; attempt < p.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := p.Retry.Backoff(attempt - 1)
			log.Printf("fetch %s attempt %d/%d failed, retrying in %s", sourceID, attempt, p.Retry.MaxAttempts, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, classify(ctx.Err())
			}
		}
		payload, err := p.attempt(ctx, url)
		if err == nil {
			if err := p.Cache.StoreSnapshot(sourceID, payload); err != nil {
				log.Printf("failed to cache snapshot for %s: %v", sourceID, err)
			}
			return payload, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (p *Pipeline) attempt(ctx context.Context, url string) (json.RawMessage, error) {
	actx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "moz-update-checker/"+utils.CurrentVersion)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	if !json.Valid(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return body, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimedOut
	}
	return err
}
