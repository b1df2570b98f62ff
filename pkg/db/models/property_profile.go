package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyProfile binds a PROPERTY user to the community it manages. Owners point at it
// through users.owner_property_id.
type PropertyProfile struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PropertyCode  string    `gorm:"column:property_code;not null;uniqueIndex"`
	PropertyName  string    `gorm:"column:property_name;not null"`
	CommunityName string    `gorm:"column:community_name;not null;default:''"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PropertyProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
