package accounts

import (
	"time"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
)

const civilDateLayout = "2006-01-02"

// RolloverPolicy decides when an account's daily counter belongs to a previous day.
// The boundary is midnight in the business timezone.
type RolloverPolicy struct {
	loc *time.Location
	now func() time.Time
}

// NewRolloverPolicy builds a policy for loc. A nil clock defaults to time.Now.
func NewRolloverPolicy(loc *time.Location, now func() time.Time) RolloverPolicy {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return RolloverPolicy{loc: loc, now: now}
}

// Now returns the policy clock reading.
func (p RolloverPolicy) Now() time.Time {
	return p.now()
}

// Location returns the business timezone.
func (p RolloverPolicy) Location() *time.Location {
	return p.loc
}

// Today returns the current business-local civil date encoded as UTC midnight,
// which is how daily_points_date is persisted.
func (p RolloverPolicy) Today() time.Time {
	y, m, d := p.now().In(p.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsStale reports whether the account's daily counter was last touched on another day.
func (p RolloverPolicy) IsStale(account *models.PointsAccount) bool {
	if account.DailyPointsDate == nil {
		return true
	}
	return !sameCivilDate(*account.DailyPointsDate, p.Today())
}

// Apply zeroes the daily counter in memory when stale and reports whether it changed.
func (p RolloverPolicy) Apply(account *models.PointsAccount) bool {
	if !p.IsStale(account) {
		return false
	}
	today := p.Today()
	account.DailyPoints = 0
	account.DailyPointsDate = &today
	return true
}

func sameCivilDate(a, b time.Time) bool {
	return a.UTC().Format(civilDateLayout) == b.UTC().Format(civilDateLayout)
}
