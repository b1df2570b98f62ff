package models

import "time"

// PointsShareSettingID is the primary key of the singleton share-setting row.
const PointsShareSettingID = 1

// PointsShareSetting is the singleton owner bonus percentage applied at settlement.
type PointsShareSetting struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	OwnerRate int       `gorm:"column:owner_rate;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
