package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/ryan-steed-usa/moz-update-checker/updater/checker"
	"github.com/ryan-steed-usa/moz-update-checker/updater/schedule"
)

var (
	initMu     sync.RWMutex
	chk        *checker.Checker
	reconciler *schedule.Reconciler
)

// Init 装配处理器依赖，必须在注册路由前调用
func Init(c *checker.Checker, r *schedule.Reconciler) {
	initMu.Lock()
	defer initMu.Unlock()
	chk = c
	reconciler = r
}

func getChecker() *checker.Checker {
	initMu.RLock()
	defer initMu.RUnlock()
	return chk
}

func getReconciler() *schedule.Reconciler {
	initMu.RLock()
	defer initMu.RUnlock()
	return reconciler
}

// RunCheck 手动触发一次检查。
// cache=false 强制完整检查；默认走缓存快路径。
// 与定时触发共用同一编排入口，同样受运行租约约束。
func RunCheck(c *gin.Context) {
	ck := getChecker()
	if ck == nil {
		RespondError(c, http.StatusServiceUnavailable, "检查器尚未就绪")
		return
	}
	useCache := true
	if raw := c.Query("cache"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "无效的 cache 参数")
			return
		}
		useCache = parsed
	}
	result := ck.Run(c.Request.Context(), useCache)
	RespondSuccess(c, result)
}
