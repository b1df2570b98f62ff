package points

import (
	"context"
	"net/http"
	"strings"

	"github.com/propertyloyalty/points-backend/api/controllers/callercontext"
	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/api/validators"
	"github.com/propertyloyalty/points-backend/internal/transfers"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// OwnerTransfers are the point movements an owner initiates.
type OwnerTransfers interface {
	CreditConsumption(ctx context.Context, input transfers.ConsumptionInput) (*transfers.ConsumptionResult, error)
	PayPropertyFee(ctx context.Context, input transfers.PropertyFeeInput) (*transfers.PeerTransferResult, error)
}

type consumptionRequest struct {
	MerchantCode string `json:"merchant_code" validate:"required,max=64"`
	Points       int64  `json:"points" validate:"required,gt=0"`
}

type propertyFeeRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

// RecordConsumption credits the owner and the merchant for a purchase the owner reports.
func RecordConsumption(svc OwnerTransfers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		caller, err := callercontext.ResolveAs(r, enums.IdentityOwner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body consumptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreditConsumption(r.Context(), transfers.ConsumptionInput{
			OwnerUserID:  caller.UserID,
			MerchantCode: strings.TrimSpace(body.MerchantCode),
			Points:       body.Points,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PayPropertyFee moves points from the owner to the property the owner is bound to.
func PayPropertyFee(svc OwnerTransfers, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		caller, err := callercontext.ResolveAs(r, enums.IdentityOwner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body propertyFeeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PayPropertyFee(r.Context(), transfers.PropertyFeeInput{
			OwnerUserID: caller.UserID,
			Points:      body.Points,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
