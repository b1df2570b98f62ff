package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// User is a mini-program account. Profile editing lives outside the ledger; only the
// columns the points core reads are mapped here.
type User struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SystemID        string         `gorm:"column:system_id;not null;uniqueIndex"`
	PhoneNumber     string         `gorm:"column:phone_number;not null;default:''"`
	IdentityType    enums.Identity `gorm:"column:identity_type;not null"`
	OwnerPropertyID *uuid.UUID     `gorm:"column:owner_property_id;type:uuid"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
