package enums

import "fmt"

// Identity is the role a user acts under; points are tracked per (user, identity).
type Identity string

const (
	IdentityOwner    Identity = "OWNER"
	IdentityMerchant Identity = "MERCHANT"
	IdentityProperty Identity = "PROPERTY"
	IdentityAdmin    Identity = "ADMIN"
)

var validIdentities = []Identity{
	IdentityOwner,
	IdentityMerchant,
	IdentityProperty,
	IdentityAdmin,
}

// String implements fmt.Stringer.
func (v Identity) String() string {
	return string(v)
}

// IsValid reports whether the value is a known Identity.
func (v Identity) IsValid() bool {
	for _, candidate := range validIdentities {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseIdentity converts raw input into an Identity.
func ParseIdentity(value string) (Identity, error) {
	for _, candidate := range validIdentities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity %q", value)
}

// HoldsPoints reports whether the identity owns a points account. ADMIN never does.
func (v Identity) HoldsPoints() bool {
	switch v {
	case IdentityOwner, IdentityMerchant, IdentityProperty:
		return true
	default:
		return false
	}
}
