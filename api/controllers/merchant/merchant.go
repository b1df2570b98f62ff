package merchant

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/propertyloyalty/points-backend/api/controllers/callercontext"
	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/api/validators"
	"github.com/propertyloyalty/points-backend/internal/sharesetting"
	"github.com/propertyloyalty/points-backend/internal/transfers"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// Transfers are the point movements a merchant initiates.
type Transfers interface {
	Settle(ctx context.Context, input transfers.SettleInput) (*transfers.SettleResult, error)
	RedeemDiscount(ctx context.Context, input transfers.DiscountRedeemInput) (*transfers.DiscountRedeemResult, error)
}

// RateReader supplies the owner share rate in force.
type RateReader interface {
	Get(ctx context.Context) (*sharesetting.Rates, error)
}

type settlementRequest struct {
	Phone  string `json:"phone" validate:"required,phone"`
	Amount string `json:"amount" validate:"required,decimal"`
}

type discountRedeemRequest struct {
	Phone  string `json:"phone" validate:"required,phone"`
	Points int64  `json:"points" validate:"required,gt=0"`
}

// Settle records a purchase by the owner with the given phone number, credits both
// parties and opens a settlement order for the owner to review.
func Settle(svc Transfers, rates RateReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || rates == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		caller, err := callercontext.ResolveAs(r, enums.IdentityMerchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body settlementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "owner_phone", logger.MaskPhone(body.Phone))
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		current, err := rates.Get(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Settle(ctx, transfers.SettleInput{
			MerchantUserID: caller.UserID,
			OwnerPhone:     strings.TrimSpace(body.Phone),
			Amount:         amount,
			OwnerRate:      current.OwnerRate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RedeemDiscount lets a discount store take points from the owner with the given
// phone number.
func RedeemDiscount(svc Transfers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		caller, err := callercontext.ResolveAs(r, enums.IdentityMerchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body discountRedeemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "owner_phone", logger.MaskPhone(body.Phone))
		}

		result, err := svc.RedeemDiscount(ctx, transfers.DiscountRedeemInput{
			MerchantUserID: caller.UserID,
			OwnerPhone:     strings.TrimSpace(body.Phone),
			Points:         body.Points,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
