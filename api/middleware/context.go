package middleware

import (
	"context"

	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// principal is the authenticated caller. Both fields come from one verified token.
type principal struct {
	userID   string
	identity enums.Identity
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string {
	return principalFrom(ctx).userID
}

// IdentityFromContext returns the identity the caller authenticated under.
func IdentityFromContext(ctx context.Context) enums.Identity {
	return principalFrom(ctx).identity
}

func WithUserID(ctx context.Context, userID string) context.Context {
	p := principalFrom(ctx)
	p.userID = userID
	return withPrincipal(ctx, p)
}

func WithIdentity(ctx context.Context, identity enums.Identity) context.Context {
	p := principalFrom(ctx)
	p.identity = identity
	return withPrincipal(ctx, p)
}
