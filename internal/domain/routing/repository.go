package routing

import (
	"context"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SplitRuleRepository defines persistence operations for routing rules
type SplitRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SplitRule, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SplitRule, error)
	FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]SplitRule, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[SplitRule], error)
	Save(ctx context.Context, rule *SplitRule) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
