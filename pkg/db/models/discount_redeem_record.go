package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DiscountRedeemRecord is the receipt of an owner spending points at a discount store.
type DiscountRedeemRecord struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RedeemID         string    `gorm:"column:redeem_id;not null;uniqueIndex"`
	MerchantID       uuid.UUID `gorm:"column:merchant_id;type:uuid;not null"`
	OwnerID          uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	OwnerPhoneNumber string    `gorm:"column:owner_phone_number;not null;default:''"`
	Points           int64     `gorm:"column:points;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *DiscountRedeemRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
