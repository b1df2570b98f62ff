package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
	"github.com/propertyloyalty/points-backend/pkg/types"
)

// Change describes one balance movement to record.
type Change struct {
	Delta         int64
	SourceType    enums.LedgerSourceType
	Meta          types.JSONMap
	CorrelationID *uuid.UUID
}

// Writer is the only component allowed to change account balances. It does bookkeeping
// only: sufficiency checks belong to the caller, which must hold the row lock.
type Writer struct {
	entries  Repository
	accounts accounts.Repository
	metrics  *metrics.LedgerMetrics
}

// NewWriter wires a ledger writer. metrics may be nil.
func NewWriter(entries Repository, accountRepo accounts.Repository, m *metrics.LedgerMetrics) (*Writer, error) {
	if entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if accountRepo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	return &Writer{entries: entries, accounts: accountRepo, metrics: m}, nil
}

// Apply adds change.Delta to both counters of account, persists it and appends the
// matching entry carrying the post-change snapshot. account is updated in place.
func (w *Writer) Apply(ctx context.Context, tx *gorm.DB, account *models.PointsAccount, change Change) (*models.LedgerEntry, error) {
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is required")
	}
	if change.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger change must be non-zero")
	}
	if !change.SourceType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid ledger source type %q", change.SourceType)
	}

	daily, ok := addPoints(account.DailyPoints, change.Delta)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger change overflows daily points")
	}
	total, ok := addPoints(account.TotalPoints, change.Delta)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger change overflows total points")
	}
	account.DailyPoints = daily
	account.TotalPoints = total
	if err := w.accounts.WithTx(tx).SaveBalances(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist account balance")
	}

	meta := change.Meta
	if meta == nil {
		meta = types.JSONMap{}
	}
	entry := &models.LedgerEntry{
		UserID:        account.UserID,
		Identity:      account.Identity,
		Change:        change.Delta,
		DailyPoints:   account.DailyPoints,
		TotalPoints:   account.TotalPoints,
		SourceType:    change.SourceType,
		SourceMeta:    meta,
		CorrelationID: change.CorrelationID,
	}
	if err := w.entries.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	w.metrics.AddPoints(account.Identity.String(), change.Delta)
	return entry, nil
}

func addPoints(balance, delta int64) (int64, bool) {
	if delta > 0 && balance > math.MaxInt64-delta {
		return 0, false
	}
	if delta < 0 && balance < math.MinInt64-delta {
		return 0, false
	}
	return balance + delta, true
}
