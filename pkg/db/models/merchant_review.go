package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MerchantReview is the single review allowed per settlement order.
type MerchantReview struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:merchant_reviews_order_id_key"`
	MerchantID uuid.UUID `gorm:"column:merchant_id;type:uuid;not null"`
	OwnerID    uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Rating     int       `gorm:"column:rating;not null"`
	Content    string    `gorm:"column:content;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *MerchantReview) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
