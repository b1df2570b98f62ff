package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValueAndScan(t *testing.T) {
	src := JSONMap{"action": "owner_property_fee_pay", "points": 100}

	raw, err := src.Value()
	require.NoError(t, err)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, "owner_property_fee_pay", decoded.String("action"))
	// numbers round-trip through encoding/json as float64
	assert.Equal(t, float64(100), decoded["points"])

	var fromBytes JSONMap
	require.NoError(t, fromBytes.Scan([]byte(`{"direction":"owner_debit"}`)))
	assert.Equal(t, "owner_debit", fromBytes.String("direction"))
}

func TestJSONMapNilHandling(t *testing.T) {
	var nilMap JSONMap
	raw, err := nilMap.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	target := JSONMap{"stale": true}
	require.NoError(t, target.Scan(nil))
	assert.Nil(t, target)

	assert.Error(t, target.Scan(42))
}

func TestJSONMapCloneIsIndependent(t *testing.T) {
	base := JSONMap{"action": "discount_redeem"}
	clone := base.Clone()
	clone["direction"] = "merchant_credit"

	assert.NotContains(t, base, "direction")
	assert.Equal(t, "merchant_credit", clone.String("direction"))
	assert.Equal(t, "", clone.String("missing"))
}
