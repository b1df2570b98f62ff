package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

// Filters narrows ledger reads. Zero values mean "any".
type Filters struct {
	UserID     uuid.UUID
	Identity   enums.Identity
	SourceType enums.LedgerSourceType
	From       *time.Time
	To         *time.Time
}

// Repository manages persistence for ledger entries. Entries are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	List(ctx context.Context, filters Filters, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error)
	ListByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.LedgerEntry, error)
	Snapshot(ctx context.Context, key accounts.Key) (*BalanceSnapshot, error)
	SumDebits(ctx context.Context, filters Filters) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, filters Filters, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error) {
	query := applyFilters(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), filters)
	var entries []models.LedgerEntry
	if err := pagination.Seek(query, cursor, limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("change ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// BalanceSnapshot pairs an account's stored total with the sum of its ledger changes.
type BalanceSnapshot struct {
	TotalPoints int64
	LedgerSum   int64
}

// snapshotSQL reads both numbers in one statement so they come from the same snapshot.
const snapshotSQL = `SELECT a.total_points AS total_points,
	COALESCE((SELECT SUM(e.change) FROM ledger_entries e
		WHERE e.user_id = a.user_id AND e.identity = a.identity), 0) AS ledger_sum
FROM points_accounts a
WHERE a.user_id = ? AND a.identity = ?`

// Snapshot returns nil when the account does not exist.
func (r *repository) Snapshot(ctx context.Context, key accounts.Key) (*BalanceSnapshot, error) {
	var rows []BalanceSnapshot
	if err := r.db.WithContext(ctx).Raw(snapshotSQL, key.UserID, key.Identity).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SumDebits returns the absolute value of all negative changes matching filters.
func (r *repository) SumDebits(ctx context.Context, filters Filters) (int64, error) {
	var total int64
	query := applyFilters(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), filters)
	if err := query.
		Select("COALESCE(SUM(-change), 0)").
		Where("change < 0").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Identity != "" {
		query = query.Where("identity = ?", filters.Identity)
	}
	if filters.SourceType != "" {
		query = query.Where("source_type = ?", filters.SourceType)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", filters.To.UTC())
	}
	return query
}
