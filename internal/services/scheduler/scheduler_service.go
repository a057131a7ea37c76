// Package scheduler drives periodic analysis runs from a cron expression.
// The cron expression can be replaced at runtime without restarting the
// scheduler.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Service implements interfaces.SchedulerService with a single registered
// job: the full analysis pipeline.
type Service struct {
	analysis interfaces.AnalysisService
	cron     *cron.Cron
	logger   arbor.ILogger
	enabled  bool

	mu        sync.Mutex // protects the fields below
	cronExpr  string
	cronID    cron.EntryID
	running   bool
	lastRun   *time.Time
	lastError string
}

// NewService creates the scheduler. The cron expression comes from
// configuration and is validated at config load time.
func NewService(analysis interfaces.AnalysisService, cfg *common.Config, logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		analysis: analysis,
		cron:     cron.New(),
		logger:   logger,
		enabled:  cfg.Scheduler.Enabled,
		cronExpr: cfg.Scheduler.Cron,
	}
}

// Start begins scheduled execution. Idempotent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	cronID, err := s.cron.AddFunc(s.cronExpr, s.runAnalysis)
	if err != nil {
		return fmt.Errorf("failed to schedule analysis job: %w", err)
	}
	s.cronID = cronID

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", s.cronExpr).
		Msg("Scheduler started")

	return nil
}

// Stop halts scheduled execution. Idempotent. A run already in flight is not
// interrupted.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cron.Remove(s.cronID)
	s.cron.Stop()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// UpdateCron validates and applies a new cron expression. When the scheduler
// is running the job is rescheduled live; on failure the prior schedule is
// restored.
func (s *Service) UpdateCron(expr string) error {
	if err := common.ValidateCronSchedule(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.cron.Remove(s.cronID)

		cronID, err := s.cron.AddFunc(expr, s.runAnalysis)
		if err != nil {
			// Restore the old schedule so the scheduler keeps firing
			oldCronID, restoreErr := s.cron.AddFunc(s.cronExpr, s.runAnalysis)
			if restoreErr != nil {
				s.logger.Error().
					Err(restoreErr).
					Msg("Failed to restore old schedule after update failure")
				s.running = false
			} else {
				s.cronID = oldCronID
			}
			return fmt.Errorf("failed to update schedule: %w", err)
		}
		s.cronID = cronID
	}

	s.cronExpr = expr

	s.logger.Info().
		Str("cron_expr", expr).
		Msg("Schedule updated")

	return nil
}

// TriggerNow runs the analysis immediately in the background, outside the
// schedule.
func (s *Service) TriggerNow() error {
	s.logger.Info().Msg("Manual analysis trigger requested")
	common.SafeGo(s.logger, "scheduled-analysis", s.runAnalysis)
	return nil
}

// IsRunning reports whether the scheduler is started.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the observable scheduler state. NextRun is recomputed from
// the live cron entry on every call.
func (s *Service) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.SchedulerStatus{
		Enabled:   s.enabled,
		Running:   s.running,
		CronExpr:  s.cronExpr,
		LastRun:   s.lastRun,
		LastError: s.lastError,
	}

	if s.running {
		entries := s.cron.Entries()
		status.JobCount = len(entries)
		for _, entry := range entries {
			if entry.ID == s.cronID {
				next := entry.Next
				status.NextRun = &next
				break
			}
		}
	}

	return status
}

// runAnalysis executes one scheduled pipeline run with panic recovery. A run
// already in progress is skipped, not queued.
func (s *Service) runAnalysis() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled analysis")
			s.mu.Lock()
			s.lastError = fmt.Sprintf("panic: %v", r)
			s.mu.Unlock()
		}
	}()

	s.logger.Info().Msg("Starting scheduled analysis run")

	startTime := time.Now()
	result, err := s.analysis.Run(context.Background(), models.DefaultAnalyzeRequest())

	completionTime := time.Now()
	s.mu.Lock()
	s.lastRun = &completionTime
	if err != nil {
		s.lastError = err.Error()
	} else if result != nil && result.Status == models.AnalysisStatusError {
		s.lastError = result.Error
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Dur("duration", time.Since(startTime)).
			Msg("Scheduled analysis failed")
		return
	}

	s.logger.Info().
		Str("run_id", result.ID).
		Str("status", string(result.Status)).
		Dur("duration", time.Since(startTime)).
		Msg("Scheduled analysis completed")
}
