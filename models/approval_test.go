package models

import (
	"testing"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/stretchr/testify/assert"
)

func TestApprovalStatusIsDecision(t *testing.T) {
	assert.False(t, ApprovalStatusPending.IsDecision())
	assert.True(t, ApprovalStatusApproved.IsDecision())
	assert.True(t, ApprovalStatusRejected.IsDecision())
	assert.True(t, ApprovalStatusRevisionRequested.IsDecision())
	assert.False(t, ApprovalStatus("unknown").IsDecision())
}

func TestApprovalStatusValid(t *testing.T) {
	for _, s := range []ApprovalStatus{
		ApprovalStatusPending, ApprovalStatusApproved,
		ApprovalStatusRejected, ApprovalStatusRevisionRequested,
	} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ApprovalStatus("").Valid())
	assert.False(t, ApprovalStatus("vetoed").Valid())
}

func TestApprovalCanBeReviewedBy(t *testing.T) {
	row := &Approval{
		DepartmentName: DepartmentFinance,
		RequiredRole:   RoleFinanceDirector,
		Status:         ApprovalStatusPending,
	}

	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"nil user", nil, false},
		{
			"inactive admin",
			&User{Role: RoleAdmin, IsActive: utils.ToPtr(false)},
			false,
		},
		{
			"admin reviews anything",
			&User{Role: RoleAdmin, IsActive: utils.ToPtr(true)},
			true,
		},
		{
			"same department reviewer",
			&User{Role: RoleDepartmentReviewer, Department: utils.ToPtr(DepartmentFinance), IsActive: utils.ToPtr(true)},
			true,
		},
		{
			"other department reviewer",
			&User{Role: RoleDepartmentReviewer, Department: utils.ToPtr(DepartmentLegal), IsActive: utils.ToPtr(true)},
			false,
		},
		{
			"reviewer without department",
			&User{Role: RoleDepartmentReviewer, IsActive: utils.ToPtr(true)},
			false,
		},
		{
			"named role holder",
			&User{Role: RoleFinanceDirector, IsActive: utils.ToPtr(true)},
			true,
		},
		{
			"seller",
			&User{Role: RoleSeller, IsActive: utils.ToPtr(true)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, row.CanBeReviewedBy(tt.user))
		})
	}
}

func TestComputeWorkflowProgress(t *testing.T) {
	rows := func(statuses ...ApprovalStatus) []*Approval {
		out := make([]*Approval, len(statuses))
		for i, s := range statuses {
			out[i] = &Approval{ApprovalStage: i + 1, Status: s}
		}
		return out
	}

	t.Run("EmptyWorkflow", func(t *testing.T) {
		progress := ComputeWorkflowProgress(nil)
		assert.Equal(t, 0.0, progress.Percentage)
		assert.Equal(t, 0, progress.CurrentStage)
		assert.False(t, progress.IsComplete)
	})

	t.Run("NothingApproved", func(t *testing.T) {
		progress := ComputeWorkflowProgress(rows(ApprovalStatusPending, ApprovalStatusPending))
		assert.Equal(t, 0.0, progress.Percentage)
		assert.Equal(t, 1, progress.CurrentStage)
		assert.False(t, progress.IsComplete)
		assert.Equal(t, 2, progress.TotalStages)
	})

	t.Run("PartiallyApproved", func(t *testing.T) {
		progress := ComputeWorkflowProgress(rows(ApprovalStatusApproved, ApprovalStatusPending, ApprovalStatusPending))
		assert.InDelta(t, 100.0/3.0, progress.Percentage, 1e-9)
		assert.Equal(t, 2, progress.CurrentStage)
		assert.False(t, progress.IsComplete)
	})

	t.Run("FullyApproved", func(t *testing.T) {
		progress := ComputeWorkflowProgress(rows(ApprovalStatusApproved, ApprovalStatusApproved))
		assert.Equal(t, 100.0, progress.Percentage)
		assert.Equal(t, 2, progress.CurrentStage)
		assert.True(t, progress.IsComplete)
	})

	t.Run("RejectionIsNotProgress", func(t *testing.T) {
		progress := ComputeWorkflowProgress(rows(ApprovalStatusRejected, ApprovalStatusApproved))
		assert.Equal(t, 50.0, progress.Percentage)
		assert.Equal(t, 1, progress.CurrentStage)
		assert.False(t, progress.IsComplete)
	})

	t.Run("ParallelStageEntries", func(t *testing.T) {
		progress := ComputeWorkflowProgress([]*Approval{
			{ApprovalStage: 1, Status: ApprovalStatusApproved},
			{ApprovalStage: 1, Status: ApprovalStatusPending},
			{ApprovalStage: 2, Status: ApprovalStatusPending},
		})
		assert.Equal(t, 1, progress.CurrentStage)
		assert.Equal(t, 3, progress.TotalStages)
	})
}
