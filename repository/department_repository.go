package repository

import (
	"context"

	"github.com/dealdesk/deal-desk/models"
	"gorm.io/gorm"
)

// ApprovalDepartmentRepositoryImpl implements the ApprovalDepartmentRepository interface
type ApprovalDepartmentRepositoryImpl struct {
	*BaseRepository[models.ApprovalDepartment, models.ApprovalDepartmentFilter]
}

// NewApprovalDepartmentRepository creates a new approval department repository
func NewApprovalDepartmentRepository(db *gorm.DB) ApprovalDepartmentRepository {
	return &ApprovalDepartmentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ApprovalDepartment, models.ApprovalDepartmentFilter](db),
	}
}

// ByName retrieves an approval department by its canonical name
func (r *ApprovalDepartmentRepositoryImpl) ByName(ctx context.Context, departmentName string) (*models.ApprovalDepartment, error) {
	filter := models.ApprovalDepartmentFilter{DepartmentName: &departmentName}
	departments, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(departments) == 0 {
		return nil, nil
	}

	return departments[0], nil
}

// ListActive retrieves all active approval departments
func (r *ApprovalDepartmentRepositoryImpl) ListActive(ctx context.Context) ([]*models.ApprovalDepartment, error) {
	isActive := true
	filter := models.ApprovalDepartmentFilter{IsActive: &isActive}
	return r.ByFilter(ctx, filter, "department_name ASC", 0, 0)
}

// ByFilter retrieves approval departments based on filter criteria
func (r *ApprovalDepartmentRepositoryImpl) ByFilter(ctx context.Context, filter models.ApprovalDepartmentFilter, orderBy string, limit, offset int) ([]*models.ApprovalDepartment, error) {
	db := r.getDB(ctx)

	var departments []*models.ApprovalDepartment
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

	err := query.Find(&departments).Error
	if err != nil {
		return nil, err
	}

	return departments, nil
}

// Count returns the number of approval departments matching the filter
func (r *ApprovalDepartmentRepositoryImpl) Count(ctx context.Context, filter models.ApprovalDepartmentFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var department models.ApprovalDepartment
	query := r.applyFilter(db.Model(&department), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any approval department matching the filter exists
func (r *ApprovalDepartmentRepositoryImpl) Exists(ctx context.Context, filter models.ApprovalDepartmentFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ApprovalDepartmentRepositoryImpl) applyFilter(db *gorm.DB, filter models.ApprovalDepartmentFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.DepartmentName != nil {
		db = db.Where("department_name = ?", *filter.DepartmentName)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
