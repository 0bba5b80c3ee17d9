package app

import (
	"context"
	"sync"
)

// Component 是交給 App 管理的長生命週期元件。
// Run 阻塞到元件停止，Shutdown 需尊重 ctx 的期限。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Hold 把沒有自己事件迴圈的資源（例如即時表的 runtime）包成 Component：
// Run 阻塞到 Shutdown 被呼叫，Shutdown 只會執行一次 release。
func Hold(release func()) Component {
	return &holder{release: release, stop: make(chan struct{})}
}

type holder struct {
	once    sync.Once
	release func()
	stop    chan struct{}
}

func (h *holder) Run() error {
	<-h.stop
	return nil
}

func (h *holder) Shutdown(ctx context.Context) error {
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
		close(h.stop)
	})
	return ctx.Err()
}
