package sharesetting

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

// MerchantRate is fixed: the merchant always earns the full settlement basis.
const MerchantRate = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Rates is the read model of the share setting.
type Rates struct {
	MerchantRate int `json:"merchant_rate"`
	OwnerRate    int `json:"owner_rate"`
}

// Service reads and updates the settlement share rate.
type Service interface {
	Get(ctx context.Context) (*Rates, error)
	Update(ctx context.Context, ownerRate int) (*Rates, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	defaultRate int
}

// NewService wires the share-setting service. defaultRate seeds the row on first read.
func NewService(repo Repository, tx txRunner, defaultRate int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("share setting repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if err := validateRate(defaultRate); err != nil {
		return nil, err
	}
	return &service{repo: repo, tx: tx, defaultRate: defaultRate}, nil
}

func (s *service) Get(ctx context.Context) (*Rates, error) {
	var out *Rates
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		setting, err := s.ensure(ctx, s.repo.WithTx(tx))
		if err != nil {
			return err
		}
		out = toRates(setting)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, ownerRate int) (*Rates, error) {
	if err := validateRate(ownerRate); err != nil {
		return nil, err
	}

	var out *Rates
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ensure(ctx, repo); err != nil {
			return err
		}
		if err := repo.UpdateOwnerRate(ctx, ownerRate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update share setting")
		}
		setting, err := repo.Find(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload share setting")
		}
		out = toRates(setting)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ensure(ctx context.Context, repo Repository) (*models.PointsShareSetting, error) {
	setting, err := repo.Find(ctx)
	if err == nil {
		return setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load share setting")
	}
	if err := repo.CreateIfMissing(ctx, &models.PointsShareSetting{OwnerRate: s.defaultRate}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create share setting")
	}
	setting, err = repo.Find(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload share setting")
	}
	return setting, nil
}

func validateRate(rate int) error {
	if rate < 0 || rate > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner_rate must be between 0 and 100")
	}
	return nil
}

func toRates(setting *models.PointsShareSetting) *Rates {
	return &Rates{MerchantRate: MerchantRate, OwnerRate: setting.OwnerRate}
}
