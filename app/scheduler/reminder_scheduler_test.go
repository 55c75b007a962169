package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealdesk/deal-desk/config"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes embed the repository interfaces so only the methods the scheduler
// calls need implementations.

type fakeApprovalRepo struct {
	repository.ApprovalRepository
	pending []*models.Approval
	err     error
}

func (f *fakeApprovalRepo) PendingDueBefore(ctx context.Context, due time.Time) ([]*models.Approval, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Approval
	for _, a := range f.pending {
		if a.DueDate != nil && a.DueDate.Before(due) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeDealRepo struct {
	repository.DealRepository
	deals map[uint]*models.Deal
}

func (f *fakeDealRepo) ByID(ctx context.Context, id uint) (*models.Deal, error) {
	return f.deals[id], nil
}

type fakeUserRepo struct {
	repository.UserRepository
	reviewers map[string][]*models.User
}

func (f *fakeUserRepo) ListReviewersByDepartment(ctx context.Context, department string) ([]*models.User, error) {
	return f.reviewers[department], nil
}

type sentEmail struct {
	to      string
	subject string
}

type fakeEmailSender struct {
	sent    []sentEmail
	failFor map[string]bool
}

func (f *fakeEmailSender) SendEmail(email, subject, message string) error {
	if f.failFor[email] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentEmail{to: email, subject: subject})
	return nil
}

func newTestScheduler(approvals *fakeApprovalRepo, deals *fakeDealRepo, users *fakeUserRepo, sender *fakeEmailSender) *ReminderScheduler {
	return NewReminderScheduler(
		approvals,
		deals,
		users,
		sender,
		config.ApprovalConfig{ReminderInterval: time.Hour, ReminderLookahead: 24 * time.Hour},
		config.LoggingConfig{Output: "stdout"},
		config.AdminConfig{Email: "ops@dealdesk.example.com"},
	)
}

func pendingApproval(id, dealID uint, department string, due time.Time) *models.Approval {
	return &models.Approval{
		ID:             id,
		UUID:           uuid.New(),
		DealID:         dealID,
		ApprovalStage:  1,
		DepartmentName: department,
		Status:         models.ApprovalStatusPending,
		DueDate:        &due,
	}
}

func TestReminderSchedulerRunOnce(t *testing.T) {
	now := utils.UTCNow()
	dealUUID := uuid.New()

	reviewers := map[string][]*models.User{
		models.DepartmentFinance: {
			{ID: 1, Email: "fin1@dealdesk.example.com", Role: models.RoleDepartmentReviewer},
			{ID: 2, Email: "fin2@dealdesk.example.com", Role: models.RoleDepartmentReviewer},
		},
	}

	t.Run("RemindsEveryReviewerOnce", func(t *testing.T) {
		approvals := &fakeApprovalRepo{pending: []*models.Approval{
			pendingApproval(10, 4, models.DepartmentFinance, now.Add(6*time.Hour)),
		}}
		deals := &fakeDealRepo{deals: map[uint]*models.Deal{4: {ID: 4, UUID: dealUUID}}}
		sender := &fakeEmailSender{}
		s := newTestScheduler(approvals, deals, &fakeUserRepo{reviewers: reviewers}, sender)

		s.runOnce(context.Background())

		require.Len(t, sender.sent, 2)
		assert.Equal(t, "fin1@dealdesk.example.com", sender.sent[0].to)
		assert.Contains(t, sender.sent[0].subject, dealUUID.String())

		// A second cycle inside the same window stays quiet
		s.runOnce(context.Background())
		assert.Len(t, sender.sent, 2)
	})

	t.Run("SkipsApprovalsOutsideLookahead", func(t *testing.T) {
		approvals := &fakeApprovalRepo{pending: []*models.Approval{
			pendingApproval(11, 4, models.DepartmentFinance, now.Add(72*time.Hour)),
		}}
		sender := &fakeEmailSender{}
		s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{reviewers: reviewers}, sender)

		s.runOnce(context.Background())
		assert.Empty(t, sender.sent)
	})

	t.Run("NoReviewersMeansRetryNextCycle", func(t *testing.T) {
		approvals := &fakeApprovalRepo{pending: []*models.Approval{
			pendingApproval(12, 4, models.DepartmentLegal, now.Add(2*time.Hour)),
		}}
		sender := &fakeEmailSender{}
		s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{reviewers: reviewers}, sender)

		s.runOnce(context.Background())
		assert.Empty(t, sender.sent)
		assert.Empty(t, s.reminded)
	})

	t.Run("PartialDeliveryStillCountsAsReminded", func(t *testing.T) {
		approvals := &fakeApprovalRepo{pending: []*models.Approval{
			pendingApproval(13, 4, models.DepartmentFinance, now.Add(2*time.Hour)),
		}}
		sender := &fakeEmailSender{failFor: map[string]bool{"fin1@dealdesk.example.com": true}}
		s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{reviewers: reviewers}, sender)

		s.runOnce(context.Background())
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "fin2@dealdesk.example.com", sender.sent[0].to)
		assert.Contains(t, s.reminded, uint(13))
	})

	t.Run("OverdueApprovalEscalatesToAdmin", func(t *testing.T) {
		approvals := &fakeApprovalRepo{pending: []*models.Approval{
			pendingApproval(14, 4, models.DepartmentFinance, now.Add(-2*time.Hour)),
		}}
		sender := &fakeEmailSender{}
		s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{reviewers: reviewers}, sender)

		s.runOnce(context.Background())
		require.Len(t, sender.sent, 3)
		assert.Equal(t, "ops@dealdesk.example.com", sender.sent[2].to)
		assert.Contains(t, sender.sent[2].subject, "Overdue")
	})

	t.Run("QueryFailureIsNonFatal", func(t *testing.T) {
		approvals := &fakeApprovalRepo{err: errors.New("connection refused")}
		sender := &fakeEmailSender{}
		s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{reviewers: reviewers}, sender)

		s.runOnce(context.Background())
		assert.Empty(t, sender.sent)
	})
}

func TestReminderSchedulerPruneReminded(t *testing.T) {
	now := utils.UTCNow()
	approvals := &fakeApprovalRepo{pending: []*models.Approval{
		pendingApproval(20, 4, models.DepartmentFinance, now.Add(time.Hour)),
	}}
	reviewers := map[string][]*models.User{
		models.DepartmentFinance: {{ID: 1, Email: "fin@dealdesk.example.com"}},
	}
	sender := &fakeEmailSender{}
	s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{reviewers: reviewers}, sender)

	s.runOnce(context.Background())
	require.Len(t, sender.sent, 1)

	// Row leaves the window (decided), then re-enters with a new due date
	// after resubmission. It must be reminded again.
	approvals.pending = nil
	s.runOnce(context.Background())
	assert.Empty(t, s.reminded)

	approvals.pending = []*models.Approval{
		pendingApproval(20, 4, models.DepartmentFinance, now.Add(2*time.Hour)),
	}
	s.runOnce(context.Background())
	assert.Len(t, sender.sent, 2)
}

func TestReminderSchedulerDefaults(t *testing.T) {
	s := NewReminderScheduler(nil, nil, nil, nil, config.ApprovalConfig{}, config.LoggingConfig{Output: "stdout"}, config.AdminConfig{})
	assert.Equal(t, time.Hour, s.interval)
	assert.Equal(t, 24*time.Hour, s.lookahead)
}

func TestReminderSchedulerStartStop(t *testing.T) {
	approvals := &fakeApprovalRepo{}
	sender := &fakeEmailSender{}
	s := newTestScheduler(approvals, &fakeDealRepo{}, &fakeUserRepo{}, sender)
	s.interval = 10 * time.Millisecond

	stop := s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	stop()

	// The loop must have run without reminders to send.
	assert.Empty(t, sender.sent)
}
