package middleware

import (
	"net/http"

	"github.com/propertyloyalty/points-backend/api/responses"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
	"github.com/propertyloyalty/points-backend/pkg/logger"
)

// RequireIdentity rejects callers whose token identity is not one of allowed.
func RequireIdentity(logg *logger.Logger, allowed ...enums.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity context missing"))
				return
			}
			for _, candidate := range allowed {
				if candidate == identity {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "identity not permitted"))
		})
	}
}
