package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalStatus represents the status of a single approval row
type ApprovalStatus string

const (
	ApprovalStatusPending           ApprovalStatus = "pending"
	ApprovalStatusApproved          ApprovalStatus = "approved"
	ApprovalStatusRejected          ApprovalStatus = "rejected"
	ApprovalStatusRevisionRequested ApprovalStatus = "revision_requested"
)

// String returns the string representation of the status
func (s ApprovalStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved,
		ApprovalStatusRejected, ApprovalStatusRevisionRequested:
		return true
	default:
		return false
	}
}

// IsDecision reports whether the status is a reviewer decision (anything
// other than pending).
func (s ApprovalStatus) IsDecision() bool {
	return s == ApprovalStatusApproved ||
		s == ApprovalStatusRejected ||
		s == ApprovalStatusRevisionRequested
}

// Scan implements the sql.Scanner interface for ApprovalStatus
func (s *ApprovalStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ApprovalStatus(v)
	case []byte:
		*s = ApprovalStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ApprovalStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ApprovalStatus
func (s ApprovalStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ApprovalStatus: %s", s)
	}
	return string(s), nil
}

// Approval is one required stage/department sign-off for a deal. The set of
// rows for a deal is frozen at workflow initiation; a resubmission after
// revision supersedes the old rows and creates a fresh set.
type Approval struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_approvals_uuid" json:"uuid"`
	DealID         uint           `gorm:"not null;index:idx_approvals_deal_id" json:"deal_id"`
	ApprovalStage  int            `gorm:"not null" json:"approval_stage"`
	DepartmentName string         `gorm:"size:100;not null;index:idx_approvals_department" json:"department_name"`
	RequiredRole   string         `gorm:"size:100;not null" json:"required_role"`
	Status         ApprovalStatus `gorm:"type:approval_status;not null;default:'pending';index:idx_approvals_status" json:"status"`
	Comments       *string        `gorm:"type:text" json:"comments,omitempty"`
	ReviewedBy     *uint          `gorm:"index:idx_approvals_reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	// DueDate is informational only; the engine never enforces it.
	DueDate    *time.Time `json:"due_date,omitempty"`
	Superseded bool       `gorm:"not null;default:false;index:idx_approvals_superseded" json:"superseded"`
	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`

	// Relations
	Deal     *Deal `gorm:"foreignKey:DealID;references:ID" json:"deal,omitempty"`
	Reviewer *User `gorm:"foreignKey:ReviewedBy;references:ID" json:"reviewer,omitempty"`
}

// TableName returns the table name for the model
func (Approval) TableName() string {
	return "approvals"
}

// BeforeCreate is called before creating a new record
func (a *Approval) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = ApprovalStatusPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (a *Approval) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	a.UpdatedAt = &now
	return nil
}

// CanBeReviewedBy checks the reviewer authorization rule: admins review
// anything; department reviewers review their own department's rows; anyone
// holding the row's required role reviews it.
func (a *Approval) CanBeReviewedBy(user *User) bool {
	if user == nil || !utils.IsTrue(user.IsActive) {
		return false
	}
	if user.Role == RoleAdmin {
		return true
	}
	if user.Role == RoleDepartmentReviewer && user.Department != nil && *user.Department == a.DepartmentName {
		return true
	}
	return user.Role == a.RequiredRole
}

// ApprovalFilter represents filter criteria for approvals
type ApprovalFilter struct {
	ID             *uint           `json:"id,omitempty"`
	UUID           *uuid.UUID      `json:"uuid,omitempty"`
	DealID         *uint           `json:"deal_id,omitempty"`
	ApprovalStage  *int            `json:"approval_stage,omitempty"`
	DepartmentName *string         `json:"department_name,omitempty"`
	Status         *ApprovalStatus `json:"status,omitempty"`
	ReviewedBy     *uint           `json:"reviewed_by,omitempty"`
	Superseded     *bool           `json:"superseded,omitempty"`
	DueBefore      *time.Time      `json:"due_before,omitempty"`
	CreatedAfter   *time.Time      `json:"created_after,omitempty"`
	CreatedBefore  *time.Time      `json:"created_before,omitempty"`
}

// WorkflowProgress is the derived read-only view over a deal's live approval
// rows, recomputed on every call.
type WorkflowProgress struct {
	Percentage   float64 `json:"percentage"`
	CurrentStage int     `json:"current_stage"`
	IsComplete   bool    `json:"is_complete"`
	TotalStages  int     `json:"total_stages"`
}

// ComputeWorkflowProgress derives progress from the given live approval rows.
// CurrentStage is the lowest stage still pending, or the highest stage once
// every row is approved. Superseded rows must be filtered out by the caller.
func ComputeWorkflowProgress(approvals []*Approval) WorkflowProgress {
	progress := WorkflowProgress{TotalStages: len(approvals)}
	if len(approvals) == 0 {
		return progress
	}

	approved := 0
	currentStage := 0
	highestStage := 0
	for _, a := range approvals {
		if a.ApprovalStage > highestStage {
			highestStage = a.ApprovalStage
		}
		if a.Status == ApprovalStatusApproved {
			approved++
			continue
		}
		if currentStage == 0 || a.ApprovalStage < currentStage {
			currentStage = a.ApprovalStage
		}
	}

	progress.Percentage = float64(approved) / float64(len(approvals)) * 100
	progress.IsComplete = approved == len(approvals)
	if progress.IsComplete {
		progress.CurrentStage = highestStage
	} else {
		progress.CurrentStage = currentStage
	}
	return progress
}
