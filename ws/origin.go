package ws

import (
	"net/http"
	"net/url"
)

// AllowAnyOrigin 放开跨源握手，用于调试或反向代理后面的部署
var AllowAnyOrigin bool

// checkOrigin 只接受同主机页面发起的握手；
// 没有 Origin 头的非浏览器客户端（curl、本地工具）直接放行
func checkOrigin(r *http.Request) bool {
	if AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
