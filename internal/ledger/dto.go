package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/types"
)

// EntryDTO is the read model for one ledger entry.
type EntryDTO struct {
	ID            uuid.UUID              `json:"id"`
	UserID        uuid.UUID              `json:"user_id"`
	Identity      enums.Identity         `json:"identity"`
	Change        int64                  `json:"change"`
	DailyPoints   int64                  `json:"daily_points"`
	TotalPoints   int64                  `json:"total_points"`
	SourceType    enums.LedgerSourceType `json:"source_type"`
	SourceMeta    types.JSONMap          `json:"source_meta"`
	CorrelationID *uuid.UUID             `json:"correlation_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ConsumptionSummary totals points spent (negative changes) over calendar windows
// in the business timezone.
type ConsumptionSummary struct {
	Total int64 `json:"consumed_total"`
	Today int64 `json:"consumed_today"`
	Month int64 `json:"consumed_month"`
	Year  int64 `json:"consumed_year"`
}

// ListQuery is the input to Service.List.
type ListQuery struct {
	Filters Filters
	Limit   int
	Cursor  string
}

// Discrepancy reports an account whose balance disagrees with its ledger.
type Discrepancy struct {
	UserID      uuid.UUID      `json:"user_id"`
	Identity    enums.Identity `json:"identity"`
	TotalPoints int64          `json:"total_points"`
	LedgerSum   int64          `json:"ledger_sum"`
}

func toEntryDTO(entry models.LedgerEntry) EntryDTO {
	return EntryDTO{
		ID:            entry.ID,
		UserID:        entry.UserID,
		Identity:      entry.Identity,
		Change:        entry.Change,
		DailyPoints:   entry.DailyPoints,
		TotalPoints:   entry.TotalPoints,
		SourceType:    entry.SourceType,
		SourceMeta:    entry.SourceMeta,
		CorrelationID: entry.CorrelationID,
		CreatedAt:     entry.CreatedAt,
	}
}
