package transfers

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	settlementOrderPrefix = "SO"
	redeemPrefix          = "DR"
	businessIDTimeLayout  = "20060102150405"
)

// businessID builds prefix + UTC yyyymmddhhmmss + 8 hex chars, e.g. SO20260314093000a1b2c3d4.
func businessID(prefix string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + at.UTC().Format(businessIDTimeLayout) + suffix
}
