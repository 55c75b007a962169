// Package scheduler runs background jobs for the approval workflow
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EmailSender is the minimal notification surface the scheduler needs.
// Extracted from NotificationService so the scheduler is easy to test.
type EmailSender interface {
	SendEmail(email, subject, message string) error
}

// ReminderScheduler periodically finds pending approvals approaching their
// due date and nudges the responsible department reviewers.
type ReminderScheduler struct {
	approvalRepo repository.ApprovalRepository
	dealRepo     repository.DealRepository
	userRepo     repository.UserRepository
	notifier     EmailSender
	logger       *log.Logger
	interval     time.Duration
	lookahead    time.Duration
	// adminEmail receives an escalation copy for overdue approvals.
	adminEmail string

	// Approvals already reminded this cycle, keyed by approval ID.
	// Reset when the row leaves the lookahead window.
	reminded map[uint]time.Time
}

// NewReminderScheduler creates a new due-date reminder scheduler
func NewReminderScheduler(
	approvalRepo repository.ApprovalRepository,
	dealRepo repository.DealRepository,
	userRepo repository.UserRepository,
	notifier EmailSender,
	approvalCfg config.ApprovalConfig,
	loggingCfg config.LoggingConfig,
	adminCfg config.AdminConfig,
) *ReminderScheduler {
	interval := approvalCfg.ReminderInterval
	if interval <= 0 {
		interval = time.Hour
	}
	lookahead := approvalCfg.ReminderLookahead
	if lookahead <= 0 {
		lookahead = 24 * time.Hour
	}

	return &ReminderScheduler{
		approvalRepo: approvalRepo,
		dealRepo:     dealRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		logger:       newSchedulerLogger(loggingCfg),
		interval:     interval,
		lookahead:    lookahead,
		adminEmail:   adminCfg.Email,
		reminded:     make(map[uint]time.Time),
	}
}

// newSchedulerLogger writes to stdout and a size-rotated file when file
// logging is configured.
func newSchedulerLogger(cfg config.LoggingConfig) *log.Logger {
	if cfg.FilePath == "" || cfg.Output == "stdout" {
		return log.Default()
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotated
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotated)
	}
	return log.New(out, "", log.LstdFlags|log.LUTC)
}

// Start launches the reminder loop. The returned function stops it.
func (s *ReminderScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *ReminderScheduler) runOnce(ctx context.Context) {
	now := utils.UTCNow()
	horizon := now.Add(s.lookahead)

	approvals, err := s.approvalRepo.PendingDueBefore(ctx, horizon)
	if err != nil {
		s.logger.Printf("scheduler: pending due-date query failed: %v", err)
		return
	}

	s.pruneReminded(approvals)

	sent := 0
	for _, approval := range approvals {
		if _, done := s.reminded[approval.ID]; done {
			continue
		}
		if s.remind(ctx, approval, now) {
			s.reminded[approval.ID] = now
			sent++
		}
	}

	if sent > 0 {
		s.logger.Printf("scheduler: sent %d due-date reminder(s), %d approval(s) in window", sent, len(approvals))
	}
}

// remind notifies every reviewer of the approval's department. Returns true
// when at least one reviewer was reached.
func (s *ReminderScheduler) remind(ctx context.Context, approval *models.Approval, now time.Time) bool {
	reviewers, err := s.userRepo.ListReviewersByDepartment(ctx, approval.DepartmentName)
	if err != nil {
		s.logger.Printf("scheduler: reviewer lookup failed for department %s: %v", approval.DepartmentName, err)
		return false
	}
	if len(reviewers) == 0 {
		return false
	}

	dealRef := fmt.Sprintf("deal #%d", approval.DealID)
	if deal, err := s.dealRepo.ByID(ctx, approval.DealID); err == nil && deal != nil {
		dealRef = "deal " + deal.UUID.String()
	}

	var dueIn string
	overdue := false
	if approval.DueDate != nil {
		if approval.DueDate.Before(now) {
			dueIn = "overdue"
			overdue = true
		} else {
			dueIn = fmt.Sprintf("due in %s", approval.DueDate.Sub(now).Round(time.Hour))
		}
	}

	subject := "Approval reminder: " + dealRef
	body := fmt.Sprintf("A %s approval for %s is still pending (%s).", approval.DepartmentName, dealRef, dueIn)

	delivered := false
	for _, reviewer := range reviewers {
		if err := s.notifier.SendEmail(reviewer.Email, subject, body); err != nil {
			s.logger.Printf("scheduler: reminder email to %s failed: %v", reviewer.Email, err)
			continue
		}
		delivered = true
	}

	if overdue && s.adminEmail != "" {
		if err := s.notifier.SendEmail(s.adminEmail, "Overdue approval: "+dealRef, body); err != nil {
			s.logger.Printf("scheduler: escalation email to %s failed: %v", s.adminEmail, err)
		}
	}
	return delivered
}

// pruneReminded drops entries for approvals no longer in the window, so a
// row that re-enters later (new due date after resubmission) is reminded again.
func (s *ReminderScheduler) pruneReminded(current []*models.Approval) {
	inWindow := make(map[uint]bool, len(current))
	for _, approval := range current {
		inWindow[approval.ID] = true
	}
	for id := range s.reminded {
		if !inWindow[id] {
			delete(s.reminded, id)
		}
	}
}
