package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
)

// Repository persists points_accounts rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, key Key) (*models.PointsAccount, error)
	FindForUpdate(ctx context.Context, key Key) (*models.PointsAccount, error)
	CreateIfMissing(ctx context.Context, account *models.PointsAccount) error
	UpdateDaily(ctx context.Context, account *models.PointsAccount) error
	SaveBalances(ctx context.Context, account *models.PointsAccount) error
	ListAfter(ctx context.Context, afterID uuid.UUID, limit int) ([]models.PointsAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, key Key) (*models.PointsAccount, error) {
	var account models.PointsAccount
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND identity = ?", key.UserID, key.Identity).
		Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindForUpdate takes the row lock until the surrounding transaction ends. The sqlite
// dialect drops the FOR UPDATE clause; there the immediate transaction holds the write lock.
func (r *repository) FindForUpdate(ctx context.Context, key Key) (*models.PointsAccount, error) {
	var account models.PointsAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND identity = ?", key.UserID, key.Identity).
		Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateIfMissing(ctx context.Context, account *models.PointsAccount) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(account).Error
}

func (r *repository) UpdateDaily(ctx context.Context, account *models.PointsAccount) error {
	return r.db.WithContext(ctx).
		Model(&models.PointsAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"daily_points":      account.DailyPoints,
			"daily_points_date": account.DailyPointsDate,
		}).Error
}

func (r *repository) SaveBalances(ctx context.Context, account *models.PointsAccount) error {
	return r.db.WithContext(ctx).
		Model(&models.PointsAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"daily_points":      account.DailyPoints,
			"total_points":      account.TotalPoints,
			"daily_points_date": account.DailyPointsDate,
		}).Error
}

// ListAfter pages through every account ordered by id, for batch jobs.
func (r *repository) ListAfter(ctx context.Context, afterID uuid.UUID, limit int) ([]models.PointsAccount, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var out []models.PointsAccount
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
