package cron

import (
	"fmt"
	log "log/slog"
)

// InitCron 注册并启动定时任务，表达式非法时返回错误
func InitCron(mgr *Manager) error {
	log.Info("Cron Jobs starting...", "retention_schedule", mgr.schedule)
	if err := mgr.RegisterJobs(); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	mgr.Start()
	return nil
}
