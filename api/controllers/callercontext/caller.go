package callercontext

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/propertyloyalty/points-backend/api/middleware"
	"github.com/propertyloyalty/points-backend/pkg/enums"
	pkgerrors "github.com/propertyloyalty/points-backend/pkg/errors"
)

// Caller is the authenticated user and the identity the token was issued for.
type Caller struct {
	UserID   uuid.UUID
	Identity enums.Identity
}

// Resolve extracts the caller seeded by middleware.Auth.
func Resolve(r *http.Request) (Caller, error) {
	ctx := r.Context()
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return Caller{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	identity := middleware.IdentityFromContext(ctx)
	if !identity.IsValid() {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity context missing")
	}
	return Caller{UserID: userID, Identity: identity}, nil
}

// ResolveAs is Resolve plus a check that the caller acts under want.
func ResolveAs(r *http.Request, want enums.Identity) (Caller, error) {
	caller, err := Resolve(r)
	if err != nil {
		return Caller{}, err
	}
	if caller.Identity != want {
		return Caller{}, pkgerrors.New(pkgerrors.CodeForbidden, "identity not permitted")
	}
	return caller, nil
}
