package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/propertyloyalty/points-backend/internal/ledger"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
)

const defaultReconcileBatchSize = 500

type accountLister interface {
	ListAfter(ctx context.Context, afterID uuid.UUID, limit int) ([]models.PointsAccount, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, account models.PointsAccount) (*ledger.Discrepancy, error)
}

// ReconcileJobParams configure the ledger reconciliation job.
type ReconcileJobParams struct {
	Logger    *logger.Logger
	Accounts  accountLister
	Ledger    reconciler
	Metrics   *metrics.LedgerMetrics
	BatchSize int
}

// NewReconcileJob builds the job that checks total_points against the ledger sum for
// every account. Drift is reported, never repaired.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account lister required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reconciler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &reconcileJob{
		logg:     params.Logger,
		accounts: params.Accounts,
		ledger:   params.Ledger,
		metrics:  params.Metrics,
		batch:    batch,
	}, nil
}

type reconcileJob struct {
	logg     *logger.Logger
	accounts accountLister
	ledger   reconciler
	metrics  *metrics.LedgerMetrics
	batch    int
}

func (j *reconcileJob) Name() string { return "ledger-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	var (
		errs       error
		checked    int
		mismatched int
		after      uuid.UUID
	)
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		page, err := j.accounts.ListAfter(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list accounts after %s: %w", after, err))
		}
		for _, account := range page {
			checked++
			diff, err := j.ledger.Reconcile(ctx, account)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reconcile %s/%s: %w", account.UserID, account.Identity, err))
				continue
			}
			if diff == nil {
				continue
			}
			mismatched++
			j.metrics.IncReconcileMismatch(diff.Identity.String())
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
				"user_id":      diff.UserID.String(),
				"identity":     diff.Identity.String(),
				"total_points": diff.TotalPoints,
				"ledger_sum":   diff.LedgerSum,
			}), "points account out of balance with ledger")
		}
		if len(page) < j.batch {
			break
		}
		after = page[len(page)-1].ID
	}

	j.metrics.SetReconciledAccounts(checked)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"accounts_checked": checked,
		"mismatches":       mismatched,
	}), "ledger reconciliation complete")

	if mismatched > 0 {
		errs = multierr.Append(errs, fmt.Errorf("%d of %d accounts out of balance", mismatched, checked))
	}
	return errs
}
