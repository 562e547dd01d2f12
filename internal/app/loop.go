package app

import (
	"context"
	log "log/slog"
)

// Loop 应用事件循环。所有组件状态只在这一个 goroutine 上读写，
// 实时回调、桥接操作与定时任务一律经 Post 串行化进来。
type Loop struct {
	tasks chan func()
}

func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
	}
}

// Post 把任务投递到事件循环。可从任意 goroutine 调用。
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.tasks <- fn
}

// Run 运行事件循环直到 ctx 结束。单个任务的 panic 被吞掉并记日志，
// 任何操作失败都不应终止宿主进程。
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.safeRun(fn)
		}
	}
}

func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("事件循环任务 panic", "panic", r)
		}
	}()
	fn()
}
