package ws

import (
	"log"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SafeConn 带写锁的 websocket 连接
type SafeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *SafeConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *SafeConn) Close() error {
	return s.conn.Close()
}

var (
	mu sync.RWMutex
	// ConnectedObservers 订阅检查结果的前端连接
	ConnectedObservers = make(map[string]*SafeConn)
)

var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

// HandleObserverConnection 升级连接并注册为结果订阅者，
// 读循环只用于感知对端关闭
func HandleObserverConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	id := uuid.NewString()
	safe := &SafeConn{conn: conn}

	mu.Lock()
	ConnectedObservers[id] = safe
	mu.Unlock()

	defer func() {
		mu.Lock()
		delete(ConnectedObservers, id)
		mu.Unlock()
		_ = safe.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ObserverCount 当前订阅者数量
func ObserverCount() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(ConnectedObservers)
}
