package checker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ryan-steed-usa/moz-update-checker/database/kv"
	"github.com/ryan-steed-usa/moz-update-checker/updater/fetch"
	"github.com/ryan-steed-usa/moz-update-checker/updater/identity"
	"github.com/ryan-steed-usa/moz-update-checker/updater/source"
	"github.com/ryan-steed-usa/moz-update-checker/updater/version"
)

const resultKey = "check/result"

// Status 检查结论
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusUpToDate        Status = "up_to_date"
	StatusUpdateAvailable Status = "update_available"
	StatusError           Status = "error"
)

// 封闭的错误原因集合；其余情况直接携带传输层错误文本
const (
	CauseUnsupported = "unsupported"
	CauseTimedOut    = "timedout"
)

// Result 一次检查的完整结论，不可变值，整体覆写持久化
type Result struct {
	Status         Status    `json:"status"`
	CurrentVersion string    `json:"current_version,omitempty"`
	LatestVersion  string    `json:"latest_version,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
	ErrorCause     string    `json:"error_cause,omitempty"`
}

// Checker 检查编排：确定身份、选择版本源、驱动抓取管道、
// 比较版本并归类失败，持久化唯一的 CheckResult
type Checker struct {
	Identity      identity.Provider
	Pipeline      *fetch.Pipeline
	Store         kv.Store
	Policy        version.Policy
	ResolveSource func(name string) (source.Source, error)
	// History 可选：每次完成的检查追加历史记录
	History func(Result)

	mu          sync.Mutex
	subscribers []func(Result)
}

func New(id identity.Provider, pipeline *fetch.Pipeline, store kv.Store) *Checker {
	return &Checker{
		Identity:      id,
		Pipeline:      pipeline,
		Store:         store,
		Policy:        version.Default,
		ResolveSource: source.Resolve,
	}
}

// Subscribe 注册结果订阅者（UI 推送、告警判定）
func (c *Checker) Subscribe(fn func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Checker) publish(r Result) {
	c.mu.Lock()
	subs := make([]func(Result), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}

// LastResult 读取持久化的检查结果
func (c *Checker) LastResult() (Result, bool) {
	raw, ok, err := c.Store.Get(resultKey)
	if err != nil || !ok {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, false
	}
	return r, true
}

func (c *Checker) persist(r Result) {
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.Store.Set(resultKey, string(raw)); err != nil {
		log.Printf("failed to persist check result: %v", err)
	}
}

func (c *Checker) clearResult() {
	if err := c.Store.Remove(resultKey); err != nil {
		log.Printf("failed to clear check result: %v", err)
	}
}

// Run 执行一次检查。
// useCache 为真且已有持久化结果时原样返回（被动刷新快路径）；
// 租约被占用时返回 Unknown，不产生任何写入。
func (c *Checker) Run(ctx context.Context, useCache bool) Result {
	now := time.Now()

	name, current, err := c.Identity.Resolve()
	if err != nil {
		return c.finish(Result{
			Status:     StatusError,
			CheckedAt:  now,
			ErrorCause: err.Error(),
		})
	}

	src, err := c.ResolveSource(name)
	if err != nil {
		// 未识别的软件直接失败，原因固定为不支持
		return c.finish(Result{
			Status:         StatusError,
			CurrentVersion: current,
			CheckedAt:      now,
			ErrorCause:     CauseUnsupported,
		})
	}

	if useCache {
		if r, ok := c.LastResult(); ok {
			return r
		}
	}

	payload, err := c.Pipeline.Fetch(ctx, src.ID, src.URL)
	if errors.Is(err, fetch.ErrCheckRunning) {
		// 已有检查在途：静默返回 Unknown，不覆写也不清除持久化结果
		return Result{
			Status:         StatusUnknown,
			CurrentVersion: current,
			CheckedAt:      now,
		}
	}
	if !useCache {
		// 确认没有撞上在途检查后才丢弃旧结论，避免把过期结论当新鲜的展示
		c.clearResult()
	}
	if err != nil {
		cause := err.Error()
		if errors.Is(err, fetch.ErrTimedOut) {
			cause = CauseTimedOut
		}
		c.clearResult()
		return c.finish(Result{
			Status:         StatusError,
			CurrentVersion: current,
			CheckedAt:      now,
			ErrorCause:     cause,
		})
	}

	latest, channel, err := src.Extract(payload, current, c.Policy)
	if err != nil {
		cause := err.Error()
		if errors.Is(err, version.ErrUnsupported) {
			cause = CauseUnsupported
		}
		return c.finish(Result{
			Status:         StatusError,
			CurrentVersion: current,
			CheckedAt:      now,
			ErrorCause:     cause,
		})
	}

	cmp, ok := c.Policy.Compare(current, latest)
	if !ok {
		return c.finish(Result{
			Status:         StatusError,
			CurrentVersion: current,
			CheckedAt:      now,
			ErrorCause:     "unparseable version data",
		})
	}

	r := Result{
		CurrentVersion: current,
		LatestVersion:  latest,
		Channel:        channel,
		CheckedAt:      now,
	}
	if cmp >= 0 {
		r.Status = StatusUpToDate
	} else {
		r.Status = StatusUpdateAvailable
	}
	return c.finish(r)
}

func (c *Checker) finish(r Result) Result {
	c.persist(r)
	if c.History != nil {
		c.History(r)
	}
	c.publish(r)
	return r
}
