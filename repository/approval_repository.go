package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/utils"
	"gorm.io/gorm"
)

// ApprovalRepositoryImpl implements the ApprovalRepository interface
type ApprovalRepositoryImpl struct {
	*BaseRepository[models.Approval, models.ApprovalFilter]
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &ApprovalRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Approval, models.ApprovalFilter](db),
	}
}

// ByID retrieves an approval by ID
func (r *ApprovalRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Approval, error) {
	db := r.getDB(ctx)

	var approval models.Approval
	err := db.Preload("Deal").
		Preload("Reviewer").
		Last(&approval, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &approval, nil
}

// LiveByDealID retrieves the current (non-superseded) approval rows for a deal
func (r *ApprovalRepositoryImpl) LiveByDealID(ctx context.Context, dealID uint) ([]*models.Approval, error) {
	superseded := false
	filter := models.ApprovalFilter{
		DealID:     &dealID,
		Superseded: &superseded,
	}
	return r.ByFilter(ctx, filter, "approval_stage ASC, id ASC", 0, 0)
}

// PendingByDepartment retrieves pending approvals routed to a department
func (r *ApprovalRepositoryImpl) PendingByDepartment(ctx context.Context, department string, limit, offset int) ([]*models.Approval, error) {
	status := models.ApprovalStatusPending
	superseded := false
	filter := models.ApprovalFilter{
		DepartmentName: &department,
		Status:         &status,
		Superseded:     &superseded,
	}
	return r.ByFilter(ctx, filter, "created_at ASC", limit, offset)
}

// PendingDueBefore retrieves pending approvals whose due date falls before the given time
func (r *ApprovalRepositoryImpl) PendingDueBefore(ctx context.Context, due time.Time) ([]*models.Approval, error) {
	status := models.ApprovalStatusPending
	superseded := false
	filter := models.ApprovalFilter{
		Status:     &status,
		Superseded: &superseded,
		DueBefore:  &due,
	}
	return r.ByFilter(ctx, filter, "due_date ASC", 0, 0)
}

// DecideIfPending records a reviewer decision only while the row is still
// pending. The WHERE clause on status makes concurrent reviews race safely:
// exactly one update wins and the loser observes zero affected rows.
func (r *ApprovalRepositoryImpl) DecideIfPending(ctx context.Context, id uint, decision models.ApprovalStatus, comments *string, reviewerID uint, reviewedAt time.Time) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.Approval{}).
		Where("id = ? AND status = ? AND superseded = FALSE", id, models.ApprovalStatusPending).
		Updates(map[string]any{
			"status":      decision,
			"comments":    comments,
			"reviewed_by": reviewerID,
			"reviewed_at": reviewedAt,
			"updated_at":  utils.UTCNow(),
		})
	if result.Error != nil {
		err = result.Error
		return false, err
	}

	return result.RowsAffected > 0, nil
}

// SupersedeByDealID marks every live approval row of a deal as superseded.
// Used when a revised deal is resubmitted and a fresh chain is materialized.
func (r *ApprovalRepositoryImpl) SupersedeByDealID(ctx context.Context, dealID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Approval{}).
		Where("deal_id = ? AND superseded = FALSE", dealID).
		Updates(map[string]any{
			"superseded": true,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// SupersedePendingByDealID marks the still-pending live rows of a deal as
// superseded. Used when a rejection or revision request settles the
// submission: the remaining stages must leave reviewer queues, while decided
// rows stay visible as history.
func (r *ApprovalRepositoryImpl) SupersedePendingByDealID(ctx context.Context, dealID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Approval{}).
		Where("deal_id = ? AND superseded = FALSE AND status = ?", dealID, models.ApprovalStatusPending).
		Updates(map[string]any{
			"superseded": true,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves approvals based on filter criteria
func (r *ApprovalRepositoryImpl) ByFilter(ctx context.Context, filter models.ApprovalFilter, orderBy string, limit, offset int) ([]*models.Approval, error) {
	db := r.getDB(ctx)

	var approvals []*models.Approval
	query := r.applyFilter(db, filter)

	// Apply ordering
	if orderBy != "" {
		query = query.Order(orderBy)
	}

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	// Preload relationships
	query = query.Preload("Deal").
		Preload("Reviewer")

	err := query.Find(&approvals).Error
	if err != nil {
		return nil, err
	}

	return approvals, nil
}

// Count returns the number of approvals matching the filter
func (r *ApprovalRepositoryImpl) Count(ctx context.Context, filter models.ApprovalFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var approval models.Approval
	query := r.applyFilter(db.Model(&approval), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any approval matching the filter exists
func (r *ApprovalRepositoryImpl) Exists(ctx context.Context, filter models.ApprovalFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ApprovalRepositoryImpl) applyFilter(db *gorm.DB, filter models.ApprovalFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.DealID != nil {
		db = db.Where("deal_id = ?", *filter.DealID)
	}
	if filter.ApprovalStage != nil {
		db = db.Where("approval_stage = ?", *filter.ApprovalStage)
	}
	if filter.DepartmentName != nil {
		db = db.Where("department_name = ?", *filter.DepartmentName)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ReviewedBy != nil {
		db = db.Where("reviewed_by = ?", *filter.ReviewedBy)
	}
	if filter.Superseded != nil {
		db = db.Where("superseded = ?", *filter.Superseded)
	}
	if filter.DueBefore != nil {
		db = db.Where("due_date IS NOT NULL AND due_date < ?", *filter.DueBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
