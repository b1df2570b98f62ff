package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db/dbtest"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

func shanghai(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	return loc
}

func newTestStore(t *testing.T, now *time.Time) (*Store, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	policy := NewRolloverPolicy(shanghai(t), func() time.Time { return *now })
	store, err := NewStore(NewRepository(conn), client, policy)
	require.NoError(t, err)
	return store, conn
}

func inTx(t *testing.T, conn *gorm.DB, fn func(tx *gorm.DB) error) {
	t.Helper()
	require.NoError(t, conn.Transaction(fn))
}

func TestStoreGetCreatesAccountLazily(t *testing.T) {
	now := time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)
	store, conn := newTestStore(t, &now)
	owner := dbtest.SeedUser(t, conn, enums.IdentityOwner, "13800000000")
	key := Key{UserID: owner.ID, Identity: enums.IdentityOwner}

	first, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.TotalPoints)
	assert.Equal(t, int64(0), first.DailyPoints)
	require.NotNil(t, first.DailyPointsDate)
	assert.Equal(t, "2026-10-18", first.DailyPointsDate.UTC().Format(civilDateLayout))

	second, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, conn.Model(&models.PointsAccount{}).Where("user_id = ?", owner.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStoreGetAppliesRolloverExactlyOncePerDay(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	store, conn := newTestStore(t, &now)
	owner := dbtest.SeedUser(t, conn, enums.IdentityOwner, "")
	key := Key{UserID: owner.ID, Identity: enums.IdentityOwner}
	ctx := context.Background()

	account, err := store.Get(ctx, key)
	require.NoError(t, err)
	account.DailyPoints = 40
	account.TotalPoints = 90
	require.NoError(t, NewRepository(conn).SaveBalances(ctx, account))

	// next business day in Shanghai
	now = now.Add(24 * time.Hour)
	rolled, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rolled.DailyPoints)
	assert.Equal(t, int64(90), rolled.TotalPoints)
	assert.Equal(t, "2026-10-18", rolled.DailyPointsDate.UTC().Format(civilDateLayout))

	// points earned later the same day must survive further reads
	rolled.DailyPoints = 15
	rolled.TotalPoints = 105
	require.NoError(t, NewRepository(conn).SaveBalances(ctx, rolled))
	for i := 0; i < 3; i++ {
		again, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(15), again.DailyPoints)
		assert.Equal(t, int64(105), again.TotalPoints)
	}

	var stored models.PointsAccount
	require.NoError(t, conn.Where("id = ?", account.ID).Take(&stored).Error)
	assert.Equal(t, int64(15), stored.DailyPoints)
}

func TestRolloverUsesBusinessTimezone(t *testing.T) {
	// 16:30 UTC on the 17th is 00:30 on the 18th in Shanghai
	now := time.Date(2026, 10, 17, 16, 30, 0, 0, time.UTC)
	policy := NewRolloverPolicy(shanghai(t), func() time.Time { return now })
	assert.Equal(t, "2026-10-18", policy.Today().Format(civilDateLayout))

	yesterday := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	account := &models.PointsAccount{DailyPoints: 12, DailyPointsDate: &yesterday}
	assert.True(t, policy.Apply(account))
	assert.Equal(t, int64(0), account.DailyPoints)
	assert.False(t, policy.Apply(account), "second apply on the same day is a no-op")

	assert.True(t, policy.IsStale(&models.PointsAccount{}), "missing date counts as stale")
}

func TestStoreRejectsIdentitiesWithoutAccounts(t *testing.T) {
	now := time.Now()
	store, _ := newTestStore(t, &now)

	_, err := store.Get(context.Background(), Key{UserID: uuid.New(), Identity: enums.IdentityAdmin})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = store.Get(context.Background(), Key{Identity: enums.IdentityOwner})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestStoreLockAllReturnsEveryKey(t *testing.T) {
	now := time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)
	store, conn := newTestStore(t, &now)
	owner := dbtest.SeedUser(t, conn, enums.IdentityOwner, "")
	property := dbtest.SeedUser(t, conn, enums.IdentityProperty, "")
	ownerKey := Key{UserID: owner.ID, Identity: enums.IdentityOwner}
	propertyKey := Key{UserID: property.ID, Identity: enums.IdentityProperty}

	var locked map[Key]*models.PointsAccount
	inTx(t, conn, func(tx *gorm.DB) error {
		var err error
		locked, err = store.LockAll(context.Background(), tx, propertyKey, ownerKey, ownerKey)
		return err
	})
	require.Len(t, locked, 2)
	assert.Equal(t, owner.ID, locked[ownerKey].UserID)
	assert.Equal(t, enums.IdentityProperty, locked[propertyKey].Identity)
}

func TestSortKeysIsDeterministic(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	forward := SortKeys([]Key{{a, enums.IdentityOwner}, {b, enums.IdentityProperty}})
	backward := SortKeys([]Key{{b, enums.IdentityProperty}, {a, enums.IdentityOwner}})
	assert.Equal(t, forward, backward)
	assert.Equal(t, a, forward[0].UserID)

	sameUser := SortKeys([]Key{{a, enums.IdentityProperty}, {a, enums.IdentityMerchant}, {a, enums.IdentityProperty}})
	require.Len(t, sameUser, 2)
	assert.Equal(t, enums.IdentityMerchant, sameUser[0].Identity)
}
