package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

// Service resolves transfer counterparts and maps missing rows to NOT_FOUND.
// All lookups run on the provided tx when non-nil.
type Service interface {
	User(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error)
	OwnerByPhone(ctx context.Context, tx *gorm.DB, phone string) (*models.User, error)
	MerchantByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.MerchantProfile, error)
	MerchantForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.MerchantProfile, error)
	MerchantByCode(ctx context.Context, tx *gorm.DB, code string) (*models.MerchantProfile, error)
	PropertyForOwner(ctx context.Context, tx *gorm.DB, owner *models.User) (*models.PropertyProfile, error)
}

type service struct {
	repo Repository
}

// NewService builds the directory lookup service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("directory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) User(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.WithTx(tx).FindUser(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "load user")
	}
	return user, nil
}

// OwnerByPhone resolves the latest user registered with phone. The match is not
// required to be acting as OWNER; the owner account is keyed by identity, not by role.
func (s *service) OwnerByPhone(ctx context.Context, tx *gorm.DB, phone string) (*models.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number required")
	}
	user, err := s.repo.WithTx(tx).FindLatestUserByPhone(ctx, phone)
	if err != nil {
		return nil, lookupError(err, "no user registered with this phone number", "load user by phone")
	}
	return user, nil
}

func (s *service) MerchantByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.MerchantProfile, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	merchant, err := s.repo.WithTx(tx).FindMerchantByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "merchant not found", "load merchant")
	}
	return merchant, nil
}

func (s *service) MerchantForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.MerchantProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	merchant, err := s.repo.WithTx(tx).FindMerchantByUser(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "merchant profile not found", "load merchant profile")
	}
	return merchant, nil
}

func (s *service) MerchantByCode(ctx context.Context, tx *gorm.DB, code string) (*models.MerchantProfile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant code required")
	}
	merchant, err := s.repo.WithTx(tx).FindMerchantByCode(ctx, code)
	if err != nil {
		return nil, lookupError(err, "merchant not found", "load merchant by code")
	}
	return merchant, nil
}

// PropertyForOwner returns the property profile the owner is bound to.
func (s *service) PropertyForOwner(ctx context.Context, tx *gorm.DB, owner *models.User) (*models.PropertyProfile, error) {
	if owner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner required")
	}
	if owner.IdentityType != enums.IdentityOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owners are bound to a property")
	}
	if owner.OwnerPropertyID == nil || *owner.OwnerPropertyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner is not bound to a property")
	}
	property, err := s.repo.WithTx(tx).FindProperty(ctx, *owner.OwnerPropertyID)
	if err != nil {
		return nil, lookupError(err, "property not found", "load property")
	}
	return property, nil
}

func lookupError(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
