package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// MerchantProfile is the merchant a MERCHANT user operates, including the rating aggregate
// recomputed on every review.
type MerchantProfile struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID                uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	MerchantCode          string             `gorm:"column:merchant_code;not null;uniqueIndex"`
	MerchantName          string             `gorm:"column:merchant_name;not null"`
	MerchantType          enums.MerchantType `gorm:"column:merchant_type;not null;default:'NORMAL'"`
	RatingCount           int                `gorm:"column:rating_count;not null;default:0"`
	AvgScore              decimal.Decimal    `gorm:"column:avg_score;type:numeric(3,1);not null"`
	PositiveRatingPercent int                `gorm:"column:positive_rating_percent;not null;default:0"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MerchantProfile) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
