package settlements

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

const (
	minRating               = 1
	maxRating               = 5
	positiveRatingThreshold = 4
	maxReviewContentRunes   = 500
)

// OrderDTO is the read model for a settlement order.
type OrderDTO struct {
	ID             uuid.UUID                   `json:"id"`
	OrderID        string                      `json:"order_id"`
	MerchantID     uuid.UUID                   `json:"merchant_id"`
	OwnerID        uuid.UUID                   `json:"owner_id"`
	Amount         string                      `json:"amount"`
	AmountInt      int64                       `json:"amount_int"`
	MerchantPoints int64                       `json:"merchant_points"`
	OwnerPoints    int64                       `json:"owner_points"`
	OwnerRate      int                         `json:"owner_rate"`
	Status         enums.SettlementOrderStatus `json:"status"`
	ReviewedAt     *time.Time                  `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	CanReview      bool                        `json:"can_review"`
	Review         *ReviewDTO                  `json:"review,omitempty"`
}

// ReviewDTO is the read model for a merchant review.
type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// MerchantRatingDTO is the merchant aggregate after a review.
type MerchantRatingDTO struct {
	MerchantID            uuid.UUID `json:"merchant_id"`
	RatingCount           int       `json:"rating_count"`
	AvgScore              string    `json:"avg_score"`
	PositiveRatingPercent int       `json:"positive_rating_percent"`
}

// ReviewResult is returned by CreateReview.
type ReviewResult struct {
	Review   ReviewDTO         `json:"review"`
	Order    OrderDTO          `json:"order"`
	Merchant MerchantRatingDTO `json:"merchant"`
}

// Actor is the authenticated caller.
type Actor struct {
	UserID   uuid.UUID
	Identity enums.Identity
}

// CreateReviewInput carries a review submission.
type CreateReviewInput struct {
	Actor   Actor
	OrderID string
	Rating  int
	Content string
}

// ListOrdersInput carries an order listing request. Status accepts the canonical values
// and the aliases understood by ParseStatusFilter.
type ListOrdersInput struct {
	Actor  Actor
	Status string
	Limit  int
	Cursor string
}

// ParseStatusFilter maps user-facing status names onto order statuses. Empty or "all"
// means no filter.
func ParseStatusFilter(raw string) (enums.SettlementOrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return "", nil
	case "pending", "comment", "pending_review":
		return enums.SettlementOrderStatusPendingReview, nil
	case "reviewed", "completed", "done":
		return enums.SettlementOrderStatusReviewed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "status must be pending or reviewed")
	}
}

func canReview(actor Actor, order models.SettlementOrder) bool {
	return actor.Identity == enums.IdentityOwner &&
		actor.UserID == order.OwnerID &&
		order.Status == enums.SettlementOrderStatusPendingReview
}

// ToOrderDTO renders order for actor, deriving can_review.
func ToOrderDTO(order models.SettlementOrder, actor Actor) OrderDTO {
	return OrderDTO{
		ID:             order.ID,
		OrderID:        order.OrderID,
		MerchantID:     order.MerchantID,
		OwnerID:        order.OwnerID,
		Amount:         order.Amount.StringFixed(2),
		AmountInt:      order.AmountInt,
		MerchantPoints: order.MerchantPoints,
		OwnerPoints:    order.OwnerPoints,
		OwnerRate:      order.OwnerRate,
		Status:         order.Status,
		ReviewedAt:     order.ReviewedAt,
		CreatedAt:      order.CreatedAt,
		CanReview:      canReview(actor, order),
	}
}

func toReviewDTO(review models.MerchantReview) ReviewDTO {
	return ReviewDTO{
		ID:         review.ID,
		OrderID:    review.OrderID,
		MerchantID: review.MerchantID,
		Rating:     review.Rating,
		Content:    review.Content,
		CreatedAt:  review.CreatedAt,
	}
}

func toMerchantRatingDTO(merchant models.MerchantProfile) MerchantRatingDTO {
	return MerchantRatingDTO{
		MerchantID:            merchant.ID,
		RatingCount:           merchant.RatingCount,
		AvgScore:              merchant.AvgScore.StringFixed(1),
		PositiveRatingPercent: merchant.PositiveRatingPercent,
	}
}
