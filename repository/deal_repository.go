package repository

import (
	"context"
	"errors"

	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/utils"
	"gorm.io/gorm"
)

// DealRepositoryImpl implements the DealRepository interface
type DealRepositoryImpl struct {
	*BaseRepository[models.Deal, models.DealFilter]
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) DealRepository {
	return &DealRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Deal, models.DealFilter](db),
	}
}

// ByID retrieves a deal by ID
func (r *DealRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Deal, error) {
	db := r.getDB(ctx)

	var deal models.Deal
	err := db.Preload("Seller").
		Last(&deal, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &deal, nil
}

// ByUUID retrieves a deal by UUID
func (r *DealRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Deal, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.DealFilter{UUID: &parsedUUID}
	deals, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(deals) == 0 {
		return nil, nil
	}

	return deals[0], nil
}

// BySellerID retrieves deals by seller ID with pagination
func (r *DealRepositoryImpl) BySellerID(ctx context.Context, sellerID uint, limit, offset int) ([]*models.Deal, error) {
	filter := models.DealFilter{SellerID: &sellerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ByStatus retrieves deals by status with pagination
func (r *DealRepositoryImpl) ByStatus(ctx context.Context, status models.DealStatus, limit, offset int) ([]*models.Deal, error) {
	filter := models.DealFilter{Status: &status}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a deal
func (r *DealRepositoryImpl) Update(ctx context.Context, deal models.Deal) error {
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

	// Set updated_at timestamp
	now := utils.UTCNow()
	deal.UpdatedAt = &now

	err = db.Save(&deal).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatus updates only the status of a deal and stamps the transition time
func (r *DealRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.DealStatus) error {
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

	now := utils.UTCNow()
	err = db.Model(&models.Deal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":             status,
			"last_status_change": now,
			"updated_at":         now,
		}).Error

	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves deals based on filter criteria
func (r *DealRepositoryImpl) ByFilter(ctx context.Context, filter models.DealFilter, orderBy string, limit, offset int) ([]*models.Deal, error) {
	db := r.getDB(ctx)

	var deals []*models.Deal
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
	query = query.Preload("Seller")

	err := query.Find(&deals).Error
	if err != nil {
		return nil, err
	}

	return deals, nil
}

// Count returns the number of deals matching the filter
func (r *DealRepositoryImpl) Count(ctx context.Context, filter models.DealFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var deal models.Deal
	query := r.applyFilter(db.Model(&deal), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any deal matching the filter exists
func (r *DealRepositoryImpl) Exists(ctx context.Context, filter models.DealFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DealRepositoryImpl) applyFilter(db *gorm.DB, filter models.DealFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.SellerID != nil {
		db = db.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Title != nil {
		db = db.Where("spec->>'title' ILIKE ?", "%"+*filter.Title+"%")
	}
	if filter.DealType != nil {
		db = db.Where("spec->>'deal_type' = ?", string(*filter.DealType))
	}
	if filter.SalesChannel != nil {
		db = db.Where("spec->>'sales_channel' = ?", string(*filter.SalesChannel))
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.UpdatedAfter != nil {
		db = db.Where("updated_at > ?", *filter.UpdatedAfter)
	}
	if filter.UpdatedBefore != nil {
		db = db.Where("updated_at < ?", *filter.UpdatedBefore)
	}

	return db
}
