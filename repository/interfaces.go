// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/dealdesk/deal-desk/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// DealRepository defines operations for deals
type DealRepository interface {
	Repository[models.Deal, models.DealFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Deal, error)
	BySellerID(ctx context.Context, sellerID uint, limit, offset int) ([]*models.Deal, error)
	ByStatus(ctx context.Context, status models.DealStatus, limit, offset int) ([]*models.Deal, error)
	Update(ctx context.Context, deal models.Deal) error
	UpdateStatus(ctx context.Context, id uint, status models.DealStatus) error
}

// ApprovalRepository defines operations for approval rows
type ApprovalRepository interface {
	Repository[models.Approval, models.ApprovalFilter]
	// LiveByDealID returns the non-superseded rows for a deal, stage order.
	LiveByDealID(ctx context.Context, dealID uint) ([]*models.Approval, error)
	PendingByDepartment(ctx context.Context, department string, limit, offset int) ([]*models.Approval, error)
	PendingDueBefore(ctx context.Context, due time.Time) ([]*models.Approval, error)
	// DecideIfPending applies a reviewer decision with compare-and-swap
	// semantics: the row is updated only while still pending, so a second
	// concurrent review cannot overwrite the first. Returns false when the
	// row was no longer pending.
	DecideIfPending(ctx context.Context, id uint, decision models.ApprovalStatus, comments *string, reviewerID uint, reviewedAt time.Time) (bool, error)
	SupersedeByDealID(ctx context.Context, dealID uint) error
	// SupersedePendingByDealID closes out the still-pending rows of a deal's
	// live submission, leaving decided rows visible.
	SupersedePendingByDealID(ctx context.Context, dealID uint) error
}

// UserRepository defines operations for user accounts
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ListReviewersByDepartment(ctx context.Context, department string) ([]*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// ApprovalDepartmentRepository defines operations for approval departments
type ApprovalDepartmentRepository interface {
	Repository[models.ApprovalDepartment, models.ApprovalDepartmentFilter]
	ByName(ctx context.Context, departmentName string) (*models.ApprovalDepartment, error)
	ListActive(ctx context.Context) ([]*models.ApprovalDepartment, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
