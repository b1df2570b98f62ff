package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/api/controllers/callercontext"
	"github.com/propertyloyalty/points-backend/api/controllers/points"
	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/api/validators"
	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/internal/ledger"
	"github.com/propertyloyalty/points-backend/internal/transfers"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/pagination"
)

// PointsAdmin is the administrative side of the transfer engine.
type PointsAdmin interface {
	Adjust(ctx context.Context, input transfers.AdjustInput) (*transfers.AdjustResult, error)
	ListRedeemRecords(ctx context.Context, filters transfers.RedeemFilters, params pagination.Params) (*pagination.Page[transfers.RedeemRecordDTO], error)
}

type adjustRequest struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	Identity    string `json:"identity" validate:"required,oneof=OWNER MERCHANT PROPERTY"`
	TotalPoints *int64 `json:"total_points" validate:"required,gte=0"`
	Reason      string `json:"reason" validate:"max=200"`
}

// AdjustPoints sets an account's total points to the requested value.
func AdjustPoints(svc PointsAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		operator, err := callercontext.ResolveAs(r, enums.IdentityAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		result, err := svc.Adjust(r.Context(), transfers.AdjustInput{
			OperatorID: operator.UserID,
			Target:     accounts.Key{UserID: userID, Identity: enums.Identity(body.Identity)},
			NewTotal:   *body.TotalPoints,
			Reason:     validators.SanitizeString(body.Reason, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListLedger pages through ledger entries of any user.
func ListLedger(svc points.LedgerReader, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		filters, err := points.ParseLedgerFilters(r, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseQueryUUID(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.UserID = userID

		params, err := points.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), ledger.ListQuery{Filters: filters, Limit: params.Limit, Cursor: params.Cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ListRedeemRecords pages through discount redemption receipts.
func ListRedeemRecords(svc PointsAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		merchantID, err := validators.ParseQueryUUID(r, "merchant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID, err := validators.ParseQueryUUID(r, "owner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := points.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListRedeemRecords(r.Context(), transfers.RedeemFilters{
			MerchantID: merchantID,
			OwnerID:    ownerID,
		}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
