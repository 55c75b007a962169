package models

import (
	"time"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. Department-scoped review rights require RoleDepartmentReviewer
// plus department membership; the named roles grant review rights on rows
// requiring that role regardless of department.
const (
	RoleSeller             = "seller"
	RoleDepartmentReviewer = "department_reviewer"
	RoleAdmin              = "admin"
)

// User is a seller, reviewer or admin account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:100;not null;index:idx_users_role" json:"role"`
	// Department is set for department-scoped reviewers.
	Department  *string    `gorm:"size:100;index:idx_users_department" json:"department,omitempty"`
	IsActive    *bool      `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID and defaults are set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.IsActive == nil {
		u.IsActive = utils.ToPtr(true)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Role          *string    `json:"role,omitempty"`
	Department    *string    `json:"department,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
