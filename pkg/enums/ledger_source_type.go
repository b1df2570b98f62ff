package enums

import "fmt"

// LedgerSourceType tags the business operation that produced a ledger entry.
type LedgerSourceType string

const (
	LedgerSourceTypeOwnerSettlement    LedgerSourceType = "OWNER_SETTLEMENT"
	LedgerSourceTypeMerchantSettlement LedgerSourceType = "MERCHANT_SETTLEMENT"
	LedgerSourceTypePropertyFeePay     LedgerSourceType = "PROPERTY_FEE_PAY"
	LedgerSourceTypeDiscountRedeem     LedgerSourceType = "DISCOUNT_REDEEM"
	LedgerSourceTypeAdminAdjust        LedgerSourceType = "ADMIN_ADJUST"
)

var validLedgerSourceTypes = []LedgerSourceType{
	LedgerSourceTypeOwnerSettlement,
	LedgerSourceTypeMerchantSettlement,
	LedgerSourceTypePropertyFeePay,
	LedgerSourceTypeDiscountRedeem,
	LedgerSourceTypeAdminAdjust,
}

// String implements fmt.Stringer.
func (v LedgerSourceType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known LedgerSourceType.
func (v LedgerSourceType) IsValid() bool {
	for _, candidate := range validLedgerSourceTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseLedgerSourceType converts raw input into a LedgerSourceType.
func ParseLedgerSourceType(value string) (LedgerSourceType, error) {
	for _, candidate := range validLedgerSourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source type %q", value)
}
