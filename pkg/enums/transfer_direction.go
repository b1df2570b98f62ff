package enums

import "fmt"

// TransferDirection labels which side of a paired transfer a ledger entry records.
type TransferDirection string

const (
	TransferDirectionOwnerDebit     TransferDirection = "owner_debit"
	TransferDirectionOwnerCredit    TransferDirection = "owner_credit"
	TransferDirectionPropertyDebit  TransferDirection = "property_debit"
	TransferDirectionPropertyCredit TransferDirection = "property_credit"
	TransferDirectionMerchantDebit  TransferDirection = "merchant_debit"
	TransferDirectionMerchantCredit TransferDirection = "merchant_credit"
)

var validTransferDirections = []TransferDirection{
	TransferDirectionOwnerDebit,
	TransferDirectionOwnerCredit,
	TransferDirectionPropertyDebit,
	TransferDirectionPropertyCredit,
	TransferDirectionMerchantDebit,
	TransferDirectionMerchantCredit,
}

// String implements fmt.Stringer.
func (v TransferDirection) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TransferDirection.
func (v TransferDirection) IsValid() bool {
	for _, candidate := range validTransferDirections {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTransferDirection converts raw input into a TransferDirection.
func ParseTransferDirection(value string) (TransferDirection, error) {
	for _, candidate := range validTransferDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer direction %q", value)
}

// DirectionFor returns the direction label for a debit or credit on an account of identity.
func DirectionFor(identity Identity, debit bool) (TransferDirection, error) {
	switch identity {
	case IdentityOwner:
		if debit {
			return TransferDirectionOwnerDebit, nil
		}
		return TransferDirectionOwnerCredit, nil
	case IdentityProperty:
		if debit {
			return TransferDirectionPropertyDebit, nil
		}
		return TransferDirectionPropertyCredit, nil
	case IdentityMerchant:
		if debit {
			return TransferDirectionMerchantDebit, nil
		}
		return TransferDirectionMerchantCredit, nil
	case IdentityAdmin:
		return "", fmt.Errorf("identity %q does not hold points", identity)
	default:
		return "", fmt.Errorf("invalid identity %q", identity)
	}
}
