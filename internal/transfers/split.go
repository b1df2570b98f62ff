package transfers

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/propertyloyalty/points-backend/pkg/config"
)

var hundred = decimal.NewFromInt(100)

// SplitPolicy turns a settlement basis and owner rate into the merchant and owner points.
type SplitPolicy func(amountInt int64, ownerRate int) (merchantPoints, ownerPoints int64)

// MerchantFull credits the merchant the whole basis and the owner a floor-rounded bonus on top.
func MerchantFull(amountInt int64, ownerRate int) (int64, int64) {
	return amountInt, ownerShare(amountInt, ownerRate)
}

// Proportional carves the owner share out of the basis; the merchant keeps the remainder.
func Proportional(amountInt int64, ownerRate int) (int64, int64) {
	owner := ownerShare(amountInt, ownerRate)
	return amountInt - owner, owner
}

// SplitPolicyByName resolves a configured split policy.
func SplitPolicyByName(name string) (SplitPolicy, error) {
	switch name {
	case "", config.SplitPolicyMerchantFull:
		return MerchantFull, nil
	case config.SplitPolicyProportional:
		return Proportional, nil
	default:
		return nil, fmt.Errorf("unknown split policy %q", name)
	}
}

// ownerShare is floor(amountInt * ownerRate / 100). ownerRate is within 0..100, so
// the result never exceeds amountInt.
func ownerShare(amountInt int64, ownerRate int) int64 {
	return decimal.NewFromInt(amountInt).
		Mul(decimal.NewFromInt(int64(ownerRate))).
		Div(hundred).
		Floor().
		IntPart()
}
