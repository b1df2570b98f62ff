package enums

import "fmt"

// MerchantType distinguishes regular merchants from discount stores that accept point redemption.
type MerchantType string

const (
	MerchantTypeNormal        MerchantType = "NORMAL"
	MerchantTypeDiscountStore MerchantType = "DISCOUNT_STORE"
)

var validMerchantTypes = []MerchantType{
	MerchantTypeNormal,
	MerchantTypeDiscountStore,
}

// String implements fmt.Stringer.
func (v MerchantType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known MerchantType.
func (v MerchantType) IsValid() bool {
	for _, candidate := range validMerchantTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseMerchantType converts raw input into a MerchantType.
func ParseMerchantType(value string) (MerchantType, error) {
	for _, candidate := range validMerchantTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid merchant type %q", value)
}
