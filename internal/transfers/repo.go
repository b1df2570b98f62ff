package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

// RedeemFilters narrows redeem record listings.
type RedeemFilters struct {
	MerchantID uuid.UUID
	OwnerID    uuid.UUID
}

// RedeemRepository persists discount redemption receipts.
type RedeemRepository interface {
	WithTx(tx *gorm.DB) RedeemRepository
	Create(ctx context.Context, record *models.DiscountRedeemRecord) error
	List(ctx context.Context, filters RedeemFilters, cursor *pagination.Cursor, limit int) ([]models.DiscountRedeemRecord, error)
}

type redeemRepository struct {
	db *gorm.DB
}

// NewRedeemRepository returns a redeem record repository bound to the provided database.
func NewRedeemRepository(db *gorm.DB) RedeemRepository {
	return &redeemRepository{db: db}
}

func (r *redeemRepository) WithTx(tx *gorm.DB) RedeemRepository {
	if tx == nil {
		return r
	}
	return &redeemRepository{db: tx}
}

func (r *redeemRepository) Create(ctx context.Context, record *models.DiscountRedeemRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *redeemRepository) List(ctx context.Context, filters RedeemFilters, cursor *pagination.Cursor, limit int) ([]models.DiscountRedeemRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.DiscountRedeemRecord{})
	if filters.MerchantID != uuid.Nil {
		query = query.Where("merchant_id = ?", filters.MerchantID)
	}
	if filters.OwnerID != uuid.Nil {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}
	var records []models.DiscountRedeemRecord
	if err := pagination.Seek(query, cursor, limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
