package accounts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is the only way to obtain a points account. Every account it returns exists
// and has had the daily rollover applied and persisted.
type Store struct {
	repo   Repository
	tx     txRunner
	policy RolloverPolicy
}

// NewStore wires an account store.
func NewStore(repo Repository, tx txRunner, policy RolloverPolicy) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Store{repo: repo, tx: tx, policy: policy}, nil
}

// Policy exposes the rollover policy so collaborators share one clock.
func (s *Store) Policy() RolloverPolicy {
	return s.policy
}

// Get returns the account for key, creating it on first reference.
func (s *Store) Get(ctx context.Context, key Key) (*models.PointsAccount, error) {
	if err := key.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account key")
	}

	var out *models.PointsAccount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		account, err := s.GetOrCreate(ctx, tx, key)
		if err != nil {
			return err
		}
		out = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrCreate is the read path inside a caller-owned transaction. The row is only
// locked when a rollover has to be written.
func (s *Store) GetOrCreate(ctx context.Context, tx *gorm.DB, key Key) (*models.PointsAccount, error) {
	repo := s.repo.WithTx(tx)
	account, err := s.ensure(ctx, repo, key, false)
	if err != nil {
		return nil, err
	}
	if !s.policy.IsStale(account) {
		return account, nil
	}
	// re-read under lock so a concurrent writer's same-day points are not zeroed
	locked, err := repo.FindForUpdate(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock points account")
	}
	if err := s.rollover(ctx, repo, locked); err != nil {
		return nil, err
	}
	return locked, nil
}

// GetForUpdate returns the account holding its row lock for the rest of tx.
func (s *Store) GetForUpdate(ctx context.Context, tx *gorm.DB, key Key) (*models.PointsAccount, error) {
	if err := key.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account key")
	}
	repo := s.repo.WithTx(tx)
	account, err := s.ensure(ctx, repo, key, true)
	if err != nil {
		return nil, err
	}
	if err := s.rollover(ctx, repo, account); err != nil {
		return nil, err
	}
	return account, nil
}

// LockAll locks every key in the global sort order and returns the accounts by key.
// Callers touching more than one account must use this instead of repeated GetForUpdate.
func (s *Store) LockAll(ctx context.Context, tx *gorm.DB, keys ...Key) (map[Key]*models.PointsAccount, error) {
	ordered := SortKeys(keys)
	out := make(map[Key]*models.PointsAccount, len(ordered))
	for _, key := range ordered {
		account, err := s.GetForUpdate(ctx, tx, key)
		if err != nil {
			return nil, err
		}
		out[key] = account
	}
	return out, nil
}

func (s *Store) ensure(ctx context.Context, repo Repository, key Key, forUpdate bool) (*models.PointsAccount, error) {
	find := repo.Find
	if forUpdate {
		find = repo.FindForUpdate
	}

	account, err := find(ctx, key)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load points account")
	}

	today := s.policy.Today()
	if err := repo.CreateIfMissing(ctx, &models.PointsAccount{
		UserID:          key.UserID,
		Identity:        key.Identity,
		DailyPointsDate: &today,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create points account")
	}

	account, err = find(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload points account")
	}
	return account, nil
}

func (s *Store) rollover(ctx context.Context, repo Repository, account *models.PointsAccount) error {
	if !s.policy.Apply(account) {
		return nil
	}
	if err := repo.UpdateDaily(ctx, account); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist daily rollover")
	}
	return nil
}
