package core

import (
	"context"

	"tableflow/internal/orderhub/domain/models"
)

type ctxKey int

const principalKey ctxKey = iota

// WithPrincipal attaches the resolved caller to the request context.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller attached by the auth middleware.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}
