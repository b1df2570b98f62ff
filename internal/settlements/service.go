package settlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/internal/directory"
	"github.com/propertyloyalty/points-backend/pkg/db"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

const (
	reviewUniqueConstraint = "merchant_reviews_order_id_key"
	reviewUniqueColumn     = "merchant_reviews.order_id"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the settlement order lifecycle: listing, detail and the one-shot review.
type Service interface {
	CreateReview(ctx context.Context, input CreateReviewInput) (*ReviewResult, error)
	List(ctx context.Context, input ListOrdersInput) (*pagination.Page[OrderDTO], error)
	Get(ctx context.Context, actor Actor, orderID string) (*OrderDTO, error)
}

// ServiceParams groups the settlement service collaborators.
type ServiceParams struct {
	Repo      Repository
	Directory directory.Service
	Tx        txRunner
	Logger    *logger.Logger
	Metrics   *metrics.LedgerMetrics
	Now       func() time.Time
}

type service struct {
	repo      Repository
	directory directory.Service
	tx        txRunner
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
	now       func() time.Time
}

// NewService builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlements repository required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("directory service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		directory: params.Directory,
		tx:        params.Tx,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

func (s *service) CreateReview(ctx context.Context, input CreateReviewInput) (*ReviewResult, error) {
	result, err := s.createReview(ctx, input)
	s.metrics.IncReview(reviewOutcome(err))

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":    "settlement.review",
		"order_id": input.OrderID,
		"user_id":  input.Actor.UserID.String(),
		"rating":   input.Rating,
	})
	if err != nil {
		if reviewOutcome(err) == metrics.OutcomeError {
			s.logg.Error(ctx, "review failed", err)
		} else {
			s.logg.Warn(ctx, "review rejected: "+err.Error())
		}
		return nil, err
	}
	s.logg.Info(ctx, "review recorded")
	return result, nil
}

func (s *service) createReview(ctx context.Context, input CreateReviewInput) (*ReviewResult, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Identity != enums.IdentityOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owners can review orders")
	}
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	content := strings.TrimSpace(input.Content)
	if utf8.RuneCountInString(content) > maxReviewContentRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content must be at most 500 characters")
	}

	var result ReviewResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.OwnerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another owner")
		}
		if order.Status != enums.SettlementOrderStatusPendingReview {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
		}

		review := &models.MerchantReview{
			OrderID:    order.ID,
			MerchantID: order.MerchantID,
			OwnerID:    order.OwnerID,
			Rating:     input.Rating,
			Content:    content,
		}
		if err := repo.CreateReview(ctx, review); err != nil {
			if db.IsUniqueViolation(err, reviewUniqueConstraint, reviewUniqueColumn) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		reviewedAt := s.now().UTC()
		if err := repo.MarkReviewed(ctx, order.ID, reviewedAt); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order reviewed")
		}
		order.Status = enums.SettlementOrderStatusReviewed
		order.ReviewedAt = &reviewedAt

		merchant, err := repo.LockMerchant(ctx, order.MerchantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock merchant")
		}
		stats, err := repo.RatingStats(ctx, merchant.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate merchant ratings")
		}
		merchant.RatingCount, merchant.AvgScore, merchant.PositiveRatingPercent = Aggregate(stats)
		if err := repo.UpdateMerchantRating(ctx, merchant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update merchant rating")
		}

		result = ReviewResult{
			Review:   toReviewDTO(*review),
			Order:    ToOrderDTO(*order, input.Actor),
			Merchant: toMerchantRatingDTO(*merchant),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*pagination.Page[OrderDTO], error) {
	status, err := ParseStatusFilter(input.Status)
	if err != nil {
		return nil, err
	}
	filters, err := s.scope(ctx, input.Actor)
	if err != nil {
		return nil, err
	}
	filters.Status = status

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListOrders(ctx, filters, cursor, pagination.LimitWithBuffer(input.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	items := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToOrderDTO(row, input.Actor))
	}
	page := pagination.Trim(items, input.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID string) (*OrderDTO, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if actor.Identity != enums.IdentityAdmin {
		scope, err := s.scope(ctx, actor)
		if err != nil {
			return nil, err
		}
		if (scope.OwnerID != uuid.Nil && scope.OwnerID != order.OwnerID) ||
			(scope.MerchantID != uuid.Nil && scope.MerchantID != order.MerchantID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not visible to caller")
		}
	}

	dto := ToOrderDTO(*order, actor)
	review, err := s.repo.FindReviewByOrder(ctx, order.ID)
	switch {
	case err == nil:
		r := toReviewDTO(*review)
		dto.Review = &r
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	return &dto, nil
}

// scope restricts owners to their own orders and merchants to their merchant's orders.
func (s *service) scope(ctx context.Context, actor Actor) (OrderFilters, error) {
	if actor.UserID == uuid.Nil {
		return OrderFilters{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	switch actor.Identity {
	case enums.IdentityOwner:
		return OrderFilters{OwnerID: actor.UserID}, nil
	case enums.IdentityMerchant:
		merchant, err := s.directory.MerchantForUser(ctx, nil, actor.UserID)
		if err != nil {
			return OrderFilters{}, err
		}
		return OrderFilters{MerchantID: merchant.ID}, nil
	default:
		return OrderFilters{}, pkgerrors.New(pkgerrors.CodeForbidden, "orders are visible to owners and merchants only")
	}
}

func reviewOutcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
