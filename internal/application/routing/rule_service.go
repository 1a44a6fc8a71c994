package routing

import (
	"context"
	"encoding/json"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RuleService manages the tenant-scoped routing rule set
type RuleService struct {
	scope       uow.TransactionScope
	permissions shared.PermissionChecker
	logger      *zap.Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(scope uow.TransactionScope, permissions shared.PermissionChecker, logger *zap.Logger) *RuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{
		scope:       scope,
		permissions: permissions,
		logger:      logger,
	}
}

// CreateRule creates a routing rule
func (s *RuleService) CreateRule(ctx context.Context, actor shared.Actor, input CreateRuleInput) (*RuleDTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityRuleManage); err != nil {
		return nil, err
	}

	rule, err := routing.NewSplitRule(actor.TenantID, input.Name, input.Priority,
		conditionsFromInput(input.Conditions), routing.TargetType(input.TargetType), input.TargetSupplierID)
	if err != nil {
		return nil, err
	}
	rule.SetCreatedBy(actor.UserID)

	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if input.TargetSupplierID != nil {
			if _, err := repos.Suppliers().FindByIDForTenant(ctx, actor.TenantID, *input.TargetSupplierID); err != nil {
				return err
			}
		}
		if err := repos.SplitRules().Save(ctx, rule); err != nil {
			return err
		}
		return repos.Audit().Record(ctx, shared.AuditEntry{
			Actor:      actor,
			EntityType: "SplitRule",
			EntityID:   rule.ID,
			Action:     shared.AuditActionCreate,
			After:      auditSnapshot(rule),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Routing rule created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.Int("priority", rule.Priority))

	return toRuleDTO(rule), nil
}

// UpdateRule updates a routing rule
func (s *RuleService) UpdateRule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID, input UpdateRuleInput) (*RuleDTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityRuleManage); err != nil {
		return nil, err
	}

	var updated *routing.SplitRule
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		rule, err := repos.SplitRules().FindByIDForTenant(ctx, actor.TenantID, ruleID)
		if err != nil {
			return err
		}
		before := auditSnapshot(rule)

		if input.TargetSupplierID != nil {
			if _, err := repos.Suppliers().FindByIDForTenant(ctx, actor.TenantID, *input.TargetSupplierID); err != nil {
				return err
			}
		}
		if err := rule.Update(input.Name, input.Priority, conditionsFromInput(input.Conditions),
			routing.TargetType(input.TargetType), input.TargetSupplierID, input.IsActive); err != nil {
			return err
		}
		if err := repos.SplitRules().Save(ctx, rule); err != nil {
			return err
		}
		if err := repos.Audit().Record(ctx, shared.AuditEntry{
			Actor:      actor,
			EntityType: "SplitRule",
			EntityID:   rule.ID,
			Action:     shared.AuditActionUpdate,
			Before:     before,
			After:      auditSnapshot(rule),
		}); err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toRuleDTO(updated), nil
}

// DeleteRule deletes a routing rule
func (s *RuleService) DeleteRule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID) error {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityRuleManage); err != nil {
		return err
	}

	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		rule, err := repos.SplitRules().FindByIDForTenant(ctx, actor.TenantID, ruleID)
		if err != nil {
			return err
		}
		if err := repos.SplitRules().Delete(ctx, actor.TenantID, ruleID); err != nil {
			return err
		}
		return repos.Audit().Record(ctx, shared.AuditEntry{
			Actor:      actor,
			EntityType: "SplitRule",
			EntityID:   ruleID,
			Action:     shared.AuditActionDelete,
			Before:     auditSnapshot(rule),
		})
	})
}

// GetRule loads a single routing rule
func (s *RuleService) GetRule(ctx context.Context, actor shared.Actor, ruleID uuid.UUID) (*RuleDTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var dto *RuleDTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		rule, err := repos.SplitRules().FindByIDForTenant(ctx, actor.TenantID, ruleID)
		if err != nil {
			return err
		}
		dto = toRuleDTO(rule)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListRules lists the tenant's routing rules
func (s *RuleService) ListRules(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[RuleDTO], error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var result *shared.Paginated[RuleDTO]
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		page, err := repos.SplitRules().FindAllForTenant(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]RuleDTO, 0, len(page.Items))
		for i := range page.Items {
			dtos = append(dtos, *toRuleDTO(&page.Items[i]))
		}
		paginated := shared.NewPaginated(dtos, page.Total, page.Page, page.PageSize)
		result = &paginated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// auditSnapshot flattens an entity into the generic audit diff shape
func auditSnapshot(v any) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var snapshot map[string]interface{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
