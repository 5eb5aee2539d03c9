package api

import (
	"github.com/gin-gonic/gin"
	"github.com/ryan-steed-usa/moz-update-checker/ws"
)

// SetupRouter 注册全部路由
func SetupRouter() *gin.Engine {
	r := gin.Default()

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", GetHealth)
		apiGroup.GET("/status", GetStatus)
		apiGroup.GET("/history", GetHistory)
		apiGroup.POST("/check", RunCheck)
		apiGroup.GET("/settings", GetSettings)
		apiGroup.PATCH("/settings", UpdateSettings)
		apiGroup.GET("/ws", ws.HandleObserverConnection)
	}
	return r
}
