package shared

import (
	"context"

	"github.com/google/uuid"
)

// Capability identifies a guarded operation class
type Capability string

const (
	CapabilitySupplyChainView   Capability = "supply_chain:view"
	CapabilityOrderRouting      Capability = "supply_chain:route"
	CapabilityProcurementManage Capability = "procurement:manage"
	CapabilityStockManage       Capability = "stock:manage"
	CapabilityRuleManage        Capability = "routing_rules:manage"
)

// Actor identifies the authenticated principal performing an operation
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Name     string
	Role     string
}

// PermissionChecker is the authorization gate consulted by every mutating
// entry point before any work is done. A non-nil error means the operation
// must abort with no side effects.
type PermissionChecker interface {
	Check(ctx context.Context, actor Actor, capability Capability) error
}

// PermissionCheckerFunc adapts a function to the PermissionChecker interface
type PermissionCheckerFunc func(ctx context.Context, actor Actor, capability Capability) error

// Check implements PermissionChecker
func (f PermissionCheckerFunc) Check(ctx context.Context, actor Actor, capability Capability) error {
	return f(ctx, actor, capability)
}

// AllowAll returns a checker that grants every capability. Used in tests and
// single-operator deployments.
func AllowAll() PermissionChecker {
	return PermissionCheckerFunc(func(context.Context, Actor, Capability) error {
		return nil
	})
}
