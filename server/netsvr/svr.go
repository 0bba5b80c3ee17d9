package netsvr

import (
	"net/http"

	"github.com/zintix-labs/weightlab/server/app"
)

// NetSvr 是可以被 app.App 啟停的路由器，只交給組裝層（server.Run）使用。
// 換 http 框架時實作這個介面即可，handler 一律走 net/http。
type NetSvr interface {
	NetRouter
	app.Component
	// Handler 回傳根路由，測試用 httptest 掛載。
	Handler() http.Handler
}

// NetRouter 只有註冊路由的能力，api 層與 Group 回呼拿到的都是它，碰不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
