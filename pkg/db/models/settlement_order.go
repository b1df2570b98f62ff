package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// SettlementOrder records a merchant settlement and the points split it produced.
type SettlementOrder struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        string                      `gorm:"column:order_id;not null;uniqueIndex"`
	MerchantID     uuid.UUID                   `gorm:"column:merchant_id;type:uuid;not null"`
	OwnerID        uuid.UUID                   `gorm:"column:owner_id;type:uuid;not null"`
	Amount         decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	AmountInt      int64                       `gorm:"column:amount_int;not null"`
	MerchantPoints int64                       `gorm:"column:merchant_points;not null"`
	OwnerPoints    int64                       `gorm:"column:owner_points;not null"`
	OwnerRate      int                         `gorm:"column:owner_rate;not null"`
	Status         enums.SettlementOrderStatus `gorm:"column:status;not null"`
	ReviewedAt     *time.Time                  `gorm:"column:reviewed_at"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *SettlementOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
