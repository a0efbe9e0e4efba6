// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance tasks.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/metplant/mcms-go/internal/service"
)

// Scheduler handles scheduled tasks like upload cleanup.
type Scheduler struct {
	cron    *cron.Cron
	uploads *service.Uploads
	logger  *slog.Logger
}

// New creates a new scheduler instance.
func New(uploads *service.Uploads, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		uploads: uploads,
		logger:  logger,
	}
}

// Start begins the scheduler with a nightly job that removes uploaded
// images past the retention window.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		removed, err := s.uploads.CleanupOld(service.UploadMaxAge)
		if err != nil {
			s.logger.Error("upload cleanup failed", "error", err)
			return
		}
		if removed > 0 {
			s.logger.Info("upload cleanup finished", "removed", removed)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
