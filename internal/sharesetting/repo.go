package sharesetting

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
)

// Repository persists the singleton points_share_settings row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context) (*models.PointsShareSetting, error)
	CreateIfMissing(ctx context.Context, setting *models.PointsShareSetting) error
	UpdateOwnerRate(ctx context.Context, ownerRate int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a share-setting repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context) (*models.PointsShareSetting, error) {
	var setting models.PointsShareSetting
	if err := r.db.WithContext(ctx).
		Where("id = ?", models.PointsShareSettingID).
		Take(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) CreateIfMissing(ctx context.Context, setting *models.PointsShareSetting) error {
	setting.ID = models.PointsShareSettingID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(setting).Error
}

func (r *repository) UpdateOwnerRate(ctx context.Context, ownerRate int) error {
	return r.db.WithContext(ctx).
		Model(&models.PointsShareSetting{}).
		Where("id = ?", models.PointsShareSettingID).
		Update("owner_rate", ownerRate).Error
}
