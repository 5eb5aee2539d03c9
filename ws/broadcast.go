package ws

// BroadcastResult 向所有订阅者推送最新检查结果
func BroadcastResult(result interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	for _, conn := range ConnectedObservers {
		if conn != nil && conn.WriteJSON(result) != nil {
			// 忽略单个连接的写入错误
			continue
		}
	}
}
