package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// PointsAccount holds the balance of one (user, identity) pair. DailyPointsDate is the
// business-local civil date stored as UTC midnight.
type PointsAccount struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex:points_accounts_user_identity_key"`
	Identity        enums.Identity `gorm:"column:identity;not null;uniqueIndex:points_accounts_user_identity_key"`
	DailyPoints     int64          `gorm:"column:daily_points;not null;default:0"`
	TotalPoints     int64          `gorm:"column:total_points;not null;default:0"`
	DailyPointsDate *time.Time     `gorm:"column:daily_points_date;type:date"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *PointsAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
