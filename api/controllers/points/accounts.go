package points

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/propertyloyalty/points-backend/api/controllers/callercontext"
	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// BalanceReader resolves an account balance, creating the account on first read.
type BalanceReader interface {
	Balance(ctx context.Context, key accounts.Key) (*accounts.Balance, error)
}

// GetAccount returns the caller's balance for the identity in the path.
func GetAccount(svc BalanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "points service unavailable"))
			return
		}

		caller, err := callercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := parseAccountIdentity(chi.URLParam(r, "identity"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), accounts.Key{UserID: caller.UserID, Identity: identity})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

func parseAccountIdentity(raw string) (enums.Identity, error) {
	identity, err := enums.ParseIdentity(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identity")
	}
	if !identity.HoldsPoints() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identity does not hold points")
	}
	return identity, nil
}
