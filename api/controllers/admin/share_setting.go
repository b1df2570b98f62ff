package admin

import (
	"context"
	"net/http"

	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/api/validators"
	"github.com/propertyloyalty/points-backend/internal/sharesetting"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// ShareSettings reads and updates the points share rates.
type ShareSettings interface {
	Get(ctx context.Context) (*sharesetting.Rates, error)
	Update(ctx context.Context, ownerRate int) (*sharesetting.Rates, error)
}

type shareSettingRequest struct {
	OwnerRate *int `json:"owner_rate" validate:"required,min=0,max=100"`
}

func GetShareSetting(svc ShareSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share setting service unavailable"))
			return
		}
		rates, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}

// UpdateShareSetting changes the owner rate; the merchant rate is fixed.
func UpdateShareSetting(svc ShareSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share setting service unavailable"))
			return
		}

		var body shareSettingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rates, err := svc.Update(r.Context(), *body.OwnerRate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "owner_rate", rates.OwnerRate), "points.share_setting.updated")
		}
		responses.WriteSuccess(w, rates)
	}
}
