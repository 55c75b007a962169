package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
)

// ApprovalDepartment is a reviewing department surfaced to the UI layer.
// IncentiveTypes lists the incentive categories the department signs off on.
type ApprovalDepartment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_approval_departments_uuid" json:"uuid"`
	DepartmentName string         `gorm:"size:100;not null;uniqueIndex:uk_approval_departments_name" json:"department_name"`
	DisplayName    string         `gorm:"size:255;not null" json:"display_name"`
	IncentiveTypes pq.StringArray `gorm:"type:text[]" json:"incentive_types"`
	IsActive       *bool          `gorm:"default:true;index:idx_approval_departments_is_active" json:"is_active"`
	CreatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (ApprovalDepartment) TableName() string {
	return "approval_departments"
}

// BeforeCreate ensures UUID is set
func (d *ApprovalDepartment) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	if d.IsActive == nil {
		d.IsActive = utils.ToPtr(true)
	}
	return nil
}

// ApprovalDepartmentFilter represents filter criteria for departments
type ApprovalDepartmentFilter struct {
	ID             *uint      `json:"id,omitempty"`
	UUID           *uuid.UUID `json:"uuid,omitempty"`
	DepartmentName *string    `json:"department_name,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}
