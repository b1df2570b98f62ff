package accounts

import (
	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// Balance is the caller-facing view of one points account.
type Balance struct {
	UserID          uuid.UUID      `json:"user_id"`
	Identity        enums.Identity `json:"identity"`
	DailyPoints     int64          `json:"daily_points"`
	TotalPoints     int64          `json:"total_points"`
	DailyPointsDate string         `json:"daily_points_date,omitempty"`
}

// ToBalance renders an account. Callers pass accounts obtained from the Store, so the
// daily counter is already current.
func ToBalance(account models.PointsAccount) Balance {
	out := Balance{
		UserID:      account.UserID,
		Identity:    account.Identity,
		DailyPoints: account.DailyPoints,
		TotalPoints: account.TotalPoints,
	}
	if account.DailyPointsDate != nil {
		out.DailyPointsDate = account.DailyPointsDate.UTC().Format(civilDateLayout)
	}
	return out
}
