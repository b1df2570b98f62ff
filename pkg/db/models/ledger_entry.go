package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/types"
)

// LedgerEntry is an immutable record of one balance change with the post-change snapshot.
type LedgerEntry struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Identity      enums.Identity         `gorm:"column:identity;not null"`
	Change        int64                  `gorm:"column:change;not null"`
	DailyPoints   int64                  `gorm:"column:daily_points;not null"`
	TotalPoints   int64                  `gorm:"column:total_points;not null"`
	SourceType    enums.LedgerSourceType `gorm:"column:source_type;not null"`
	SourceMeta    types.JSONMap          `gorm:"column:source_meta;type:jsonb"`
	CorrelationID *uuid.UUID             `gorm:"column:correlation_id;type:uuid"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
