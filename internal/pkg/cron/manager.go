package cron

import (
	log "log/slog"

	"toychat/internal/job"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	presenceRefreshJob *job.PresenceRefreshJob
	storeCompactJob    *job.StoreCompactJob
}

func NewCronManager(presenceRefreshJob *job.PresenceRefreshJob, storeCompactJob *job.StoreCompactJob) *Manager {
	return &Manager{
		engine:             cron.New(cron.WithSeconds()),
		presenceRefreshJob: presenceRefreshJob,
		storeCompactJob:    storeCompactJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@every 25s", s.presenceRefreshJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.storeCompactJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
