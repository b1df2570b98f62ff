package accounts

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// Key identifies one points account.
type Key struct {
	UserID   uuid.UUID
	Identity enums.Identity
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.UserID, k.Identity)
}

// Validate rejects keys that cannot own a points account.
func (k Key) Validate() error {
	if k.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if !k.Identity.HoldsPoints() {
		return fmt.Errorf("identity %q does not hold points", k.Identity)
	}
	return nil
}

func (k Key) less(other Key) bool {
	a, b := k.UserID.String(), other.UserID.String()
	if a != b {
		return a < b
	}
	return k.Identity < other.Identity
}

// SortKeys returns the distinct keys in the global lock order: user id, then identity.
func SortKeys(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
