package directory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
)

// Repository reads the user and profile rows the points core needs to resolve counterparts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindLatestUserByPhone(ctx context.Context, phone string) (*models.User, error)
	FindMerchantByID(ctx context.Context, id uuid.UUID) (*models.MerchantProfile, error)
	FindMerchantByUser(ctx context.Context, userID uuid.UUID) (*models.MerchantProfile, error)
	FindMerchantByCode(ctx context.Context, code string) (*models.MerchantProfile, error)
	FindProperty(ctx context.Context, id uuid.UUID) (*models.PropertyProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a directory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindLatestUserByPhone returns the most recently registered user with the phone number.
func (r *repository) FindLatestUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		Order("id DESC").
		Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindMerchantByID(ctx context.Context, id uuid.UUID) (*models.MerchantProfile, error) {
	var merchant models.MerchantProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *repository) FindMerchantByUser(ctx context.Context, userID uuid.UUID) (*models.MerchantProfile, error) {
	var merchant models.MerchantProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *repository) FindMerchantByCode(ctx context.Context, code string) (*models.MerchantProfile, error) {
	var merchant models.MerchantProfile
	if err := r.db.WithContext(ctx).Where("merchant_code = ?", code).Take(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *repository) FindProperty(ctx context.Context, id uuid.UUID) (*models.PropertyProfile, error) {
	var property models.PropertyProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}
