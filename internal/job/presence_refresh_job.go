package job

import (
	"toychat/internal/app"
)

// PresenceRefreshJob 周期性重发本端 presence 记录，
// 防止长时间静默被服务端判定离线。
type PresenceRefreshJob struct {
	loop *app.Loop
	app  *app.App
}

func NewPresenceRefreshJob(loop *app.Loop, application *app.App) *PresenceRefreshJob {
	return &PresenceRefreshJob{
		loop: loop,
		app:  application,
	}
}

func (s *PresenceRefreshJob) Run() {
	s.loop.Post(s.app.RefreshPresence)
}
