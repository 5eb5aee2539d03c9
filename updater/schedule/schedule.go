package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ryan-steed-usa/moz-update-checker/database/settings"
	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
)

// MissedFirePolicy 错过唤醒后的补偿方式
type MissedFirePolicy int

const (
	// ForceFullCheck 检测到漂移时强制一次不走缓存的完整检查
	ForceFullCheck MissedFirePolicy = iota
	// TrustCache 照常走缓存路径
	TrustCache
)

// Reconciler 维护唯一的周期检查触发器。
// 设备休眠会静默吞掉计划内的触发，唤醒后第一次触发时
// 对照上次成功检查时间做漂移检测并补偿。
type Reconciler struct {
	Policy MissedFirePolicy

	run         func(ctx context.Context, useCache bool) checker.Result
	lastChecked func() (time.Time, bool)

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	hasEntry bool
	interval time.Duration
}

func New(run func(ctx context.Context, useCache bool) checker.Result, lastChecked func() (time.Time, bool)) *Reconciler {
	r := &Reconciler{
		run:         run,
		lastChecked: lastChecked,
		cron:        cron.New(),
	}
	r.cron.Start()
	return r
}

// Apply 让触发器与配置一致。
// 非法的存量周期收窄为默认值并告警；0 表示停用；
// 周期未变化且未要求重建时不做任何事。
func (r *Reconciler) Apply(intervalMinutes int, forceRecreate bool) {
	effective := intervalMinutes
	if effective != 0 && effective < settings.MinIntervalMinutes {
		log.Printf("warning: invalid check interval %d minutes, falling back to %d", intervalMinutes, settings.DefaultIntervalMinutes)
		effective = settings.DefaultIntervalMinutes
	}
	d := time.Duration(effective) * time.Minute

	r.mu.Lock()
	defer r.mu.Unlock()

	if d == r.interval && r.hasEntry == (d != 0) && !forceRecreate {
		return
	}
	if r.hasEntry {
		r.cron.Remove(r.entryID)
		r.hasEntry = false
	}
	r.interval = d
	if d == 0 {
		log.Printf("periodic check disabled")
		return
	}
	id, err := r.cron.AddFunc(fmt.Sprintf("@every %dm", effective), r.onFire)
	if err != nil {
		log.Printf("failed to schedule periodic check: %v", err)
		return
	}
	r.entryID = id
	r.hasEntry = true
	log.Printf("periodic check scheduled every %d minutes", effective)
}

// Interval 当前生效的检查周期
func (r *Reconciler) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// Stop 停止触发器
func (r *Reconciler) Stop() {
	r.cron.Stop()
}

func (r *Reconciler) onFire() {
	r.mu.Lock()
	interval := r.interval
	r.mu.Unlock()
	if interval == 0 {
		return
	}

	useCache := true
	if r.Policy == ForceFullCheck {
		last, ok := r.lastChecked()
		if MissedFire(last, ok, time.Now(), interval) {
			log.Printf("missed scheduled check detected, forcing a full re-check")
			useCache = false
		}
	}
	r.run(context.Background(), useCache)
}

// MissedFire 漂移判定：上次成功检查早于（本次触发时间 − 一个完整周期）
// 即有触发被吞掉。从未检查过也按错过处理。
func MissedFire(lastCheck time.Time, hasChecked bool, fireTime time.Time, period time.Duration) bool {
	if !hasChecked {
		return true
	}
	return lastCheck.Before(fireTime.Add(-period))
}
