package auth

import (
	"context"

	"github.com/orderflow/backend/internal/domain/shared"
)

type claimsContextKey struct{}

// ContextWithClaims stores validated token claims on the request context.
// The HTTP middleware calls this after token validation so downstream
// authorization checks can see the caller's grants.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext retrieves claims previously stored by ContextWithClaims
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// RoleAdmin holds every capability implicitly
const RoleAdmin = "admin"

// CapabilityChecker authorizes operations against the capability list
// carried in the caller's token claims. It rejects cross-tenant actors:
// the actor's tenant must match the tenant the token was issued for.
type CapabilityChecker struct{}

// NewCapabilityChecker creates a claims-backed permission checker
func NewCapabilityChecker() *CapabilityChecker {
	return &CapabilityChecker{}
}

// Check implements shared.PermissionChecker
func (c *CapabilityChecker) Check(ctx context.Context, actor shared.Actor, capability shared.Capability) error {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return shared.NewUnauthorizedError("AUTH_REQUIRED", "no credentials on request")
	}

	if claims.TenantID != actor.TenantID.String() {
		return shared.NewUnauthorizedError("TENANT_MISMATCH", "actor tenant does not match token tenant")
	}

	if claims.Role == RoleAdmin {
		return nil
	}

	if claims.HasCapability(string(capability)) {
		return nil
	}

	return shared.NewUnauthorizedError("PERMISSION_DENIED", "missing capability "+string(capability))
}

var _ shared.PermissionChecker = (*CapabilityChecker)(nil)
