package settlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

// OrderFilters narrows order listings. Exactly one of OwnerID / MerchantID is normally set.
type OrderFilters struct {
	OwnerID    uuid.UUID
	MerchantID uuid.UUID
	Status     enums.SettlementOrderStatus
}

// RatingStats is the aggregate over every review of one merchant.
type RatingStats struct {
	Count    int64
	Sum      int64
	Positive int64
}

// Repository persists settlement orders, their reviews and the merchant rating aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.SettlementOrder) error
	FindOrder(ctx context.Context, orderID string) (*models.SettlementOrder, error)
	FindOrderForUpdate(ctx context.Context, orderID string) (*models.SettlementOrder, error)
	ListOrders(ctx context.Context, filters OrderFilters, cursor *pagination.Cursor, limit int) ([]models.SettlementOrder, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, at time.Time) error
	CreateReview(ctx context.Context, review *models.MerchantReview) error
	FindReviewByOrder(ctx context.Context, orderID uuid.UUID) (*models.MerchantReview, error)
	RatingStats(ctx context.Context, merchantID uuid.UUID) (RatingStats, error)
	LockMerchant(ctx context.Context, merchantID uuid.UUID) (*models.MerchantProfile, error)
	UpdateMerchantRating(ctx context.Context, merchant *models.MerchantProfile) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.SettlementOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID string) (*models.SettlementOrder, error) {
	var order models.SettlementOrder
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID string) (*models.SettlementOrder, error) {
	var order models.SettlementOrder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, filters OrderFilters, cursor *pagination.Cursor, limit int) ([]models.SettlementOrder, error) {
	query := r.db.WithContext(ctx).Model(&models.SettlementOrder{})
	if filters.OwnerID != uuid.Nil {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}
	if filters.MerchantID != uuid.Nil {
		query = query.Where("merchant_id = ?", filters.MerchantID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	var orders []models.SettlementOrder
	if err := pagination.Seek(query, cursor, limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkReviewed flips a pending order to REVIEWED. The status guard makes a lost race a no-op
// that the caller detects through RowsAffected.
func (r *repository) MarkReviewed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.SettlementOrder{}).
		Where("id = ? AND status = ?", id, enums.SettlementOrderStatusPendingReview).
		Updates(map[string]any{
			"status":      enums.SettlementOrderStatusReviewed,
			"reviewed_at": at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateReview(ctx context.Context, review *models.MerchantReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindReviewByOrder(ctx context.Context, orderID uuid.UUID) (*models.MerchantReview, error) {
	var review models.MerchantReview
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) RatingStats(ctx context.Context, merchantID uuid.UUID) (RatingStats, error) {
	var row struct {
		ReviewCount   int64
		RatingSum     int64
		PositiveCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.MerchantReview{}).
		Select(
			"COUNT(*) AS review_count, COALESCE(SUM(rating), 0) AS rating_sum, "+
				"COALESCE(SUM(CASE WHEN rating >= ? THEN 1 ELSE 0 END), 0) AS positive_count",
			positiveRatingThreshold,
		).
		Where("merchant_id = ?", merchantID).
		Scan(&row).Error
	if err != nil {
		return RatingStats{}, err
	}
	return RatingStats{Count: row.ReviewCount, Sum: row.RatingSum, Positive: row.PositiveCount}, nil
}

func (r *repository) LockMerchant(ctx context.Context, merchantID uuid.UUID) (*models.MerchantProfile, error) {
	var merchant models.MerchantProfile
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", merchantID).
		Take(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *repository) UpdateMerchantRating(ctx context.Context, merchant *models.MerchantProfile) error {
	return r.db.WithContext(ctx).
		Model(&models.MerchantProfile{}).
		Where("id = ?", merchant.ID).
		Updates(map[string]any{
			"rating_count":            merchant.RatingCount,
			"avg_score":               merchant.AvgScore,
			"positive_rating_percent": merchant.PositiveRatingPercent,
		}).Error
}
