package cron

import (
	"WhatsInbox/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const defaultRetentionSchedule = "0 30 3 * * *"

type Manager struct {
	engine       *cron.Cron
	schedule     string
	retentionJob *job.RawPayloadRetentionJob
}

func NewCronManager(schedule string, retentionJob *job.RawPayloadRetentionJob) *Manager {
	if schedule == "" {
		schedule = defaultRetentionSchedule
	}
	return &Manager{
		engine:       cron.New(cron.WithSeconds()),
		schedule:     schedule,
		retentionJob: retentionJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.schedule, s.retentionJob); err != nil {
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
	<-s.engine.Stop().Done()
}
