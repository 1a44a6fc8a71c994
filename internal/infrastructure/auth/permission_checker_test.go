package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/backend/internal/domain/shared"
)

func TestCapabilityChecker(t *testing.T) {
	checker := NewCapabilityChecker()
	tenantID := uuid.New()
	actor := shared.Actor{
		UserID:   uuid.New(),
		TenantID: tenantID,
		Name:     "warehouse-lead",
		Role:     "operator",
	}

	claimsCtx := func(claims *Claims) context.Context {
		return ContextWithClaims(context.Background(), claims)
	}

	t.Run("grants capability present in claims", func(t *testing.T) {
		ctx := claimsCtx(&Claims{
			TenantID:     tenantID.String(),
			Role:         "operator",
			Capabilities: []string{string(shared.CapabilityStockManage)},
		})
		assert.NoError(t, checker.Check(ctx, actor, shared.CapabilityStockManage))
	})

	t.Run("denies capability absent from claims", func(t *testing.T) {
		ctx := claimsCtx(&Claims{
			TenantID:     tenantID.String(),
			Role:         "operator",
			Capabilities: []string{string(shared.CapabilitySupplyChainView)},
		})
		err := checker.Check(ctx, actor, shared.CapabilityProcurementManage)
		require.Error(t, err)
		assert.Equal(t, shared.KindUnauthorized, shared.KindOf(err))
	})

	t.Run("admin role bypasses capability list", func(t *testing.T) {
		ctx := claimsCtx(&Claims{TenantID: tenantID.String(), Role: RoleAdmin})
		assert.NoError(t, checker.Check(ctx, actor, shared.CapabilityRuleManage))
	})

	t.Run("denies request without claims", func(t *testing.T) {
		err := checker.Check(context.Background(), actor, shared.CapabilityStockManage)
		require.Error(t, err)
		assert.Equal(t, shared.KindUnauthorized, shared.KindOf(err))
	})

	t.Run("denies cross-tenant actor", func(t *testing.T) {
		ctx := claimsCtx(&Claims{
			TenantID:     uuid.New().String(),
			Role:         RoleAdmin,
			Capabilities: []string{string(shared.CapabilityStockManage)},
		})
		err := checker.Check(ctx, actor, shared.CapabilityStockManage)
		require.Error(t, err)
		assert.Equal(t, shared.KindUnauthorized, shared.KindOf(err))
	})
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &Claims{TenantID: uuid.New().String(), UserID: uuid.New().String()}

	ctx := ContextWithClaims(context.Background(), claims)
	got, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, claims, got)

	_, ok = ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
