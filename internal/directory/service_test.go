package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/propertyloyalty/points-backend/pkg/db/dbtest"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

func TestOwnerByPhone_ReturnsLatestRegistration(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	older := dbtest.SeedOwner(t, conn, "13800000000", nil)
	require.NoError(t, conn.Model(&models.User{}).
		Where("id = ?", older.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	newer := dbtest.SeedOwner(t, conn, "13800000000", nil)

	got, err := svc.OwnerByPhone(context.Background(), nil, " 13800000000 ")
	require.NoError(t, err)
	require.Equal(t, newer.ID, got.ID)
}

func TestOwnerByPhone_Errors(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.OwnerByPhone(context.Background(), nil, "")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.OwnerByPhone(context.Background(), nil, "19900000000")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestMerchantLookups(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	user, merchant := dbtest.SeedMerchant(t, conn, enums.MerchantTypeDiscountStore)

	byUser, err := svc.MerchantForUser(ctx, nil, user.ID)
	require.NoError(t, err)
	require.Equal(t, merchant.ID, byUser.ID)

	byCode, err := svc.MerchantByCode(ctx, conn, merchant.MerchantCode)
	require.NoError(t, err)
	require.Equal(t, enums.MerchantTypeDiscountStore, byCode.MerchantType)

	byID, err := svc.MerchantByID(ctx, nil, merchant.ID)
	require.NoError(t, err)
	require.Equal(t, merchant.MerchantCode, byID.MerchantCode)

	_, err = svc.MerchantByCode(ctx, nil, "missing")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.MerchantForUser(ctx, nil, uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestPropertyForOwner(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	_, property := dbtest.SeedProperty(t, conn)
	bound := dbtest.SeedOwner(t, conn, "13900000001", &property)
	unbound := dbtest.SeedOwner(t, conn, "13900000002", nil)

	got, err := svc.PropertyForOwner(ctx, nil, &bound)
	require.NoError(t, err)
	require.Equal(t, property.ID, got.ID)

	_, err = svc.PropertyForOwner(ctx, nil, &unbound)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	merchantUser, _ := dbtest.SeedMerchant(t, conn, enums.MerchantTypeNormal)
	_, err = svc.PropertyForOwner(ctx, nil, &merchantUser)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}
