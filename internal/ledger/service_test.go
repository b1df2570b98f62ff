package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/pkg/db/dbtest"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

func seedEntry(t *testing.T, conn *gorm.DB, userID uuid.UUID, change int64, source enums.LedgerSourceType, at time.Time) models.LedgerEntry {
	t.Helper()
	entry := models.LedgerEntry{
		UserID:      userID,
		Identity:    enums.IdentityOwner,
		Change:      change,
		TotalPoints: change,
		SourceType:  source,
		SourceMeta:  map[string]any{},
		CreatedAt:   at.UTC(),
	}
	require.NoError(t, conn.Create(&entry).Error)
	return entry
}

func TestServiceListPaginatesNewestFirst(t *testing.T) {
	_, conn := dbtest.Client(t)
	owner := dbtest.SeedUser(t, conn, enums.IdentityOwner, "")
	other := dbtest.SeedUser(t, conn, enums.IdentityOwner, "")
	base := time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, seedEntry(t, conn, owner.ID, int64(i+1), enums.LedgerSourceTypeOwnerSettlement, base.Add(time.Duration(i)*time.Minute)).ID)
	}
	seedEntry(t, conn, other.ID, 9, enums.LedgerSourceTypeOwnerSettlement, base)

	svc, err := NewService(NewRepository(conn), accounts.NewRolloverPolicy(time.UTC, nil))
	require.NoError(t, err)

	filters := Filters{UserID: owner.ID, Identity: enums.IdentityOwner}
	first, err := svc.List(context.Background(), ListQuery{Filters: filters, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, ids[4], first.Items[0].ID)
	assert.Equal(t, ids[3], first.Items[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(context.Background(), ListQuery{Filters: filters, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, ids[2], second.Items[0].ID)

	third, err := svc.List(context.Background(), ListQuery{Filters: filters, Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Equal(t, ids[0], third.Items[0].ID)
	assert.Empty(t, third.NextCursor)
}

func TestServiceListFiltersBySourceAndRange(t *testing.T) {
	_, conn := dbtest.Client(t)
	owner := dbtest.SeedUser(t, conn, enums.IdentityOwner, "")
	base := time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC)
	seedEntry(t, conn, owner.ID, 10, enums.LedgerSourceTypeOwnerSettlement, base)
	fee := seedEntry(t, conn, owner.ID, -4, enums.LedgerSourceTypePropertyFeePay, base.Add(time.Hour))
	seedEntry(t, conn, owner.ID, -2, enums.LedgerSourceTypePropertyFeePay, base.Add(48*time.Hour))

	svc, err := NewService(NewRepository(conn), accounts.NewRolloverPolicy(time.UTC, nil))
	require.NoError(t, err)

	from, to := base, base.Add(24*time.Hour)
	page, err := svc.List(context.Background(), ListQuery{Filters: Filters{
		UserID:     owner.ID,
		SourceType: enums.LedgerSourceTypePropertyFeePay,
		From:       &from,
		To:         &to,
	}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, fee.ID, page.Items[0].ID)
}

func TestServiceListValidatesInput(t *testing.T) {
	svc, err := NewService(&fakeRepository{}, accounts.NewRolloverPolicy(time.UTC, nil))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListQuery{Filters: Filters{Identity: "GUEST"}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), ListQuery{Cursor: "***"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	later := time.Now()
	earlier := later.Add(-time.Hour)
	_, err = svc.List(context.Background(), ListQuery{Filters: Filters{From: &later, To: &earlier}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestServiceSummaryCountsOnlyDebitsPerWindow(t *testing.T) {
	_, conn := dbtest.Client(t)
	owner := dbtest.SeedUser(t, conn, enums.IdentityOwner, "")
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, loc)

	seedEntry(t, conn, owner.ID, 500, enums.LedgerSourceTypeOwnerSettlement, now.Add(-time.Hour))
	seedEntry(t, conn, owner.ID, -30, enums.LedgerSourceTypePropertyFeePay, now.Add(-time.Hour))
	seedEntry(t, conn, owner.ID, -20, enums.LedgerSourceTypeDiscountRedeem, time.Date(2026, 10, 3, 9, 0, 0, 0, loc))
	seedEntry(t, conn, owner.ID, -7, enums.LedgerSourceTypeDiscountRedeem, time.Date(2026, 2, 1, 9, 0, 0, 0, loc))
	seedEntry(t, conn, owner.ID, -1, enums.LedgerSourceTypeDiscountRedeem, time.Date(2025, 12, 31, 23, 0, 0, 0, loc))

	svc, err := NewService(NewRepository(conn), accounts.NewRolloverPolicy(loc, func() time.Time { return now }))
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), Filters{UserID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(58), summary.Total)
	assert.Equal(t, int64(30), summary.Today)
	assert.Equal(t, int64(50), summary.Month)
	assert.Equal(t, int64(57), summary.Year)
}

func TestServiceReconcileReportsDrift(t *testing.T) {
	repo := &fakeRepository{snapshot: &BalanceSnapshot{TotalPoints: 100, LedgerSum: 100}}
	svc, err := NewService(repo, accounts.NewRolloverPolicy(time.UTC, nil))
	require.NoError(t, err)

	ok, err := svc.Reconcile(context.Background(), models.PointsAccount{UserID: uuid.New(), Identity: enums.IdentityOwner, TotalPoints: 100})
	require.NoError(t, err)
	assert.Nil(t, ok)

	repo.snapshot = &BalanceSnapshot{TotalPoints: 130, LedgerSum: 100}
	drift, err := svc.Reconcile(context.Background(), models.PointsAccount{UserID: uuid.New(), Identity: enums.IdentityMerchant, TotalPoints: 130})
	require.NoError(t, err)
	require.NotNil(t, drift)
	assert.Equal(t, int64(100), drift.LedgerSum)
	assert.Equal(t, int64(130), drift.TotalPoints)

	repo.snapshot = nil
	_, err = svc.Reconcile(context.Background(), models.PointsAccount{UserID: uuid.New(), Identity: enums.IdentityOwner})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	repo.err = errors.New("connection reset")
	_, err = svc.Reconcile(context.Background(), models.PointsAccount{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestServiceReconcileIgnoresTransfersCommittedAfterListing(t *testing.T) {
	f := newFixture(t, time.Now)
	owner := dbtest.SeedUser(t, f.conn, enums.IdentityOwner, "")
	key := accounts.Key{UserID: owner.ID, Identity: enums.IdentityOwner}
	listed, _ := f.apply(t, key, Change{Delta: 100, SourceType: enums.LedgerSourceTypeOwnerSettlement})
	stale := *listed

	f.apply(t, key, Change{Delta: -30, SourceType: enums.LedgerSourceTypePropertyFeePay})

	svc, err := NewService(f.repo, f.policy)
	require.NoError(t, err)
	drift, err := svc.Reconcile(context.Background(), stale)
	require.NoError(t, err)
	assert.Nil(t, drift)

	require.NoError(t, f.conn.Model(&models.PointsAccount{}).
		Where("id = ?", stale.ID).
		Update("total_points", 75).Error)
	drift, err = svc.Reconcile(context.Background(), stale)
	require.NoError(t, err)
	require.NotNil(t, drift)
	assert.Equal(t, int64(75), drift.TotalPoints)
	assert.Equal(t, int64(70), drift.LedgerSum)
}

type fakeRepository struct {
	sum      int64
	snapshot *BalanceSnapshot
	err      error
}

func (f *fakeRepository) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepository) Create(context.Context, *models.LedgerEntry) error { return f.err }

func (f *fakeRepository) List(context.Context, Filters, *pagination.Cursor, int) ([]models.LedgerEntry, error) {
	return nil, f.err
}

func (f *fakeRepository) ListByCorrelation(context.Context, uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, f.err
}

func (f *fakeRepository) Snapshot(context.Context, accounts.Key) (*BalanceSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeRepository) SumDebits(context.Context, Filters) (int64, error) {
	return f.sum, f.err
}
