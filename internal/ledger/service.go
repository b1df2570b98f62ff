package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

// Service exposes read-only ledger views used by reporting and reconciliation.
type Service interface {
	List(ctx context.Context, query ListQuery) (*pagination.Page[EntryDTO], error)
	Summary(ctx context.Context, filters Filters) (*ConsumptionSummary, error)
	Reconcile(ctx context.Context, account models.PointsAccount) (*Discrepancy, error)
}

type service struct {
	repo   Repository
	policy accounts.RolloverPolicy
}

// NewService wires the ledger read service. policy supplies the clock and timezone
// for calendar windows.
func NewService(repo Repository, policy accounts.RolloverPolicy) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, policy: policy}, nil
}

func (s *service) List(ctx context.Context, query ListQuery) (*pagination.Page[EntryDTO], error) {
	if query.Filters.Identity != "" && !query.Filters.Identity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identity filter")
	}
	if query.Filters.SourceType != "" && !query.Filters.SourceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid source type filter")
	}
	if query.Filters.From != nil && query.Filters.To != nil && !query.Filters.From.Before(*query.Filters.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}

	cursor, err := pagination.ParseCursor(query.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, query.Filters, cursor, pagination.LimitWithBuffer(query.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	dtos := make([]EntryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toEntryDTO(row))
	}
	page := pagination.Trim(dtos, query.Limit, func(e EntryDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return &page, nil
}

func (s *service) Summary(ctx context.Context, filters Filters) (*ConsumptionSummary, error) {
	total, err := s.repo.SumDebits(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum consumption")
	}
	out := &ConsumptionSummary{Total: total}

	now := s.policy.Now().In(s.policy.Location())
	y, m, d := now.Date()
	windows := []struct {
		since time.Time
		into  *int64
	}{
		{time.Date(y, m, d, 0, 0, 0, 0, now.Location()), &out.Today},
		{time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), &out.Month},
		{time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()), &out.Year},
	}
	for _, w := range windows {
		windowed := filters
		if filters.From == nil || filters.From.Before(w.since) {
			since := w.since
			windowed.From = &since
		}
		sum, err := s.repo.SumDebits(ctx, windowed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum windowed consumption")
		}
		*w.into = sum
	}
	return out, nil
}

// Reconcile compares the account's stored total with the sum of its ledger entries.
// Both are re-read together, so a transfer committed after account was listed does
// not count as drift. It returns nil when they agree.
func (s *service) Reconcile(ctx context.Context, account models.PointsAccount) (*Discrepancy, error) {
	snap, err := s.repo.Snapshot(ctx, accounts.Key{UserID: account.UserID, Identity: account.Identity})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read ledger snapshot")
	}
	if snap == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "points account %s/%s not found", account.UserID, account.Identity)
	}
	if snap.LedgerSum == snap.TotalPoints {
		return nil, nil
	}
	return &Discrepancy{
		UserID:      account.UserID,
		Identity:    account.Identity,
		TotalPoints: snap.TotalPoints,
		LedgerSum:   snap.LedgerSum,
	}, nil
}
