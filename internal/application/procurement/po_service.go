package procurement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// POService drives the purchase order lifecycle. Every status write goes
// through the domain transition table; the service adds authorization,
// persistence, and auditing around it.
type POService struct {
	scope           uow.TransactionScope
	permissions     shared.PermissionChecker
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewPOService creates a new POService
func NewPOService(scope uow.TransactionScope, permissions shared.PermissionChecker, logger *zap.Logger) *POService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &POService{
		scope:       scope,
		permissions: permissions,
		logger:      logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *POService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// CreatePurchaseOrder creates a manual purchase order, typically STOCK
// replenishment detached from any sales order
func (s *POService) CreatePurchaseOrder(ctx context.Context, actor shared.Actor, input CreatePOInput) (*PODTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "create")
	defer span.End()

	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var dto *PODTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		supplier, err := repos.Suppliers().FindByIDForTenant(ctx, actor.TenantID, input.SupplierID)
		if err != nil {
			return err
		}
		poNo, err := repos.DocumentNumbers().Generate(ctx, actor.TenantID, "PO")
		if err != nil {
			return err
		}
		po, err := procurement.NewPurchaseOrder(actor.TenantID, poNo, supplier.ID, supplier.Name,
			procurement.POType(input.Type), nil)
		if err != nil {
			return err
		}
		po.SetCreatedBy(actor.UserID)
		for _, item := range input.Items {
			if _, err := po.AddItem(item.ProductID, item.ProductName, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return fmt.Errorf("save purchase order %s: %w", poNo, err)
		}
		if err := repos.Audit().Record(ctx, shared.AuditEntry{
			Actor:      actor,
			EntityType: "PurchaseOrder",
			EntityID:   po.ID,
			Action:     shared.AuditActionCreate,
			After:      poSnapshot(po),
		}); err != nil {
			return err
		}
		dto = toPODTO(po)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPOID, dto.ID,
		telemetry.SpanAttrPONumber, dto.PONo)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordDocumentCreated(ctx, actor.TenantID, telemetry.DocTypePurchaseOrder)
	}
	s.logger.Info("Purchase order created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("po_no", dto.PONo))

	return dto, nil
}

// UpdateStatus applies a plain lifecycle transition. Transitions with side
// requirements (SHIPPED) are rejected here and must use their dedicated
// operations.
func (s *POService) UpdateStatus(ctx context.Context, actor shared.Actor, poID uuid.UUID, input UpdateStatusInput) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "status updated", func(po *procurement.PurchaseOrder) error {
		return po.TransitionTo(procurement.POStatus(input.Status))
	})
}

// ConfirmQuote accepts the supplier quote and fixes the order total
func (s *POService) ConfirmQuote(ctx context.Context, actor shared.Actor, poID uuid.UUID, input ConfirmQuoteInput) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "quote confirmed", func(po *procurement.PurchaseOrder) error {
		return po.ConfirmQuote(input.TotalAmount)
	})
}

// ConfirmPayment records payment and releases the order into production
func (s *POService) ConfirmPayment(ctx context.Context, actor shared.Actor, poID uuid.UUID) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "payment confirmed", func(po *procurement.PurchaseOrder) error {
		return po.ConfirmPayment()
	})
}

// ConfirmProduction marks production finished
func (s *POService) ConfirmProduction(ctx context.Context, actor shared.Actor, poID uuid.UUID) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "production confirmed", func(po *procurement.PurchaseOrder) error {
		return po.ConfirmProduction()
	})
}

// Submit moves a draft order into the confirmation flow
func (s *POService) Submit(ctx context.Context, actor shared.Actor, poID uuid.UUID) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "submitted", func(po *procurement.PurchaseOrder) error {
		return po.Submit()
	})
}

// MarkDelivered records carrier-confirmed delivery
func (s *POService) MarkDelivered(ctx context.Context, actor shared.Actor, poID uuid.UUID) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "delivered", func(po *procurement.PurchaseOrder) error {
		return po.MarkDelivered()
	})
}

// Cancel cancels the order from any non-terminal status
func (s *POService) Cancel(ctx context.Context, actor shared.Actor, poID uuid.UUID, input CancelInput) (*PODTO, error) {
	return s.mutate(ctx, actor, poID, "cancelled", func(po *procurement.PurchaseOrder) error {
		return po.Cancel(input.Reason)
	})
}

// Ship records the shipment and transitions the order to SHIPPED in one
// transaction, so the order can never be SHIPPED without a shipment row
func (s *POService) Ship(ctx context.Context, actor shared.Actor, poID uuid.UUID, input ShipInput) (*PODTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		return nil, err
	}

	var dto *PODTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		po, err := repos.PurchaseOrders().FindByIDForTenant(ctx, actor.TenantID, poID)
		if err != nil {
			return err
		}
		before := poSnapshot(po)

		shipment, err := po.Ship(input.Carrier, input.TrackingNo)
		if err != nil {
			return err
		}
		if err := repos.PurchaseOrders().SaveShipment(ctx, shipment); err != nil {
			return fmt.Errorf("save shipment for order %s: %w", po.PONo, err)
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return fmt.Errorf("save purchase order %s: %w", po.PONo, err)
		}
		if err := repos.Audit().Record(ctx, shared.AuditEntry{
			Actor:      actor,
			EntityType: "PurchaseOrder",
			EntityID:   po.ID,
			Action:     shared.AuditActionUpdate,
			Before:     before,
			After:      poSnapshot(po),
		}); err != nil {
			return err
		}
		dto = toPODTO(po)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase order shipped",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("po_id", poID.String()),
		zap.String("carrier", input.Carrier))

	return dto, nil
}

// BatchDeleteDrafts deletes a set of draft orders. A single non-draft in the
// set fails the whole batch.
func (s *POService) BatchDeleteDrafts(ctx context.Context, actor shared.Actor, input BatchDeleteDraftsInput) error {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		return err
	}

	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		orders, err := repos.PurchaseOrders().FindByIDsForTenant(ctx, actor.TenantID, input.POIDs)
		if err != nil {
			return err
		}
		if len(orders) != len(input.POIDs) {
			return shared.NewNotFoundError("PO_NOT_FOUND",
				fmt.Sprintf("Found %d of %d purchase orders", len(orders), len(input.POIDs)))
		}
		for i := range orders {
			if !orders[i].IsDraft() {
				return shared.NewValidationError("NOT_DRAFT",
					fmt.Sprintf("Order %s is %s, only drafts can be deleted", orders[i].ID, orders[i].Status))
			}
		}
		if err := repos.PurchaseOrders().DeleteDrafts(ctx, actor.TenantID, input.POIDs); err != nil {
			return err
		}
		for i := range orders {
			if err := repos.Audit().Record(ctx, shared.AuditEntry{
				Actor:      actor,
				EntityType: "PurchaseOrder",
				EntityID:   orders[i].ID,
				Action:     shared.AuditActionDelete,
				Before:     poSnapshot(&orders[i]),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPurchaseOrder loads one order with its items and shipments
func (s *POService) GetPurchaseOrder(ctx context.Context, actor shared.Actor, poID uuid.UUID) (*PODTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var dto *PODTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		po, err := repos.PurchaseOrders().FindByIDForTenant(ctx, actor.TenantID, poID)
		if err != nil {
			return err
		}
		dto = toPODTO(po)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListPurchaseOrders lists the tenant's purchase orders
func (s *POService) ListPurchaseOrders(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[PODTO], error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var result *shared.Paginated[PODTO]
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		page, err := repos.PurchaseOrders().FindAllForTenant(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]PODTO, 0, len(page.Items))
		for i := range page.Items {
			dtos = append(dtos, *toPODTO(&page.Items[i]))
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

// ListTasksForOrder lists the production tasks created for a sales order
func (s *POService) ListTasksForOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]TaskDTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var dtos []TaskDTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		tasks, err := repos.ProductionTasks().FindByOrderID(ctx, actor.TenantID, orderID)
		if err != nil {
			return err
		}
		dtos = make([]TaskDTO, 0, len(tasks))
		for i := range tasks {
			dtos = append(dtos, *toTaskDTO(&tasks[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dtos, nil
}

// mutate wraps the load-transition-save-audit cycle shared by all lifecycle
// operations
func (s *POService) mutate(ctx context.Context, actor shared.Actor, poID uuid.UUID, action string, fn func(po *procurement.PurchaseOrder) error) (*PODTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrPOID, poID))
	defer span.End()

	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var dto *PODTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		po, err := repos.PurchaseOrders().FindByIDForTenant(ctx, actor.TenantID, poID)
		if err != nil {
			return err
		}
		before := poSnapshot(po)

		if err := fn(po); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return fmt.Errorf("save purchase order %s: %w", po.PONo, err)
		}
		if err := repos.Audit().Record(ctx, shared.AuditEntry{
			Actor:      actor,
			EntityType: "PurchaseOrder",
			EntityID:   po.ID,
			Action:     shared.AuditActionUpdate,
			Before:     before,
			After:      poSnapshot(po),
		}); err != nil {
			return err
		}
		dto = toPODTO(po)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrPOStatus, dto.Status)

	s.logger.Info("Purchase order "+action,
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("po_id", poID.String()),
		zap.String("status", dto.Status))

	return dto, nil
}

// poSnapshot flattens an order into the generic audit diff shape
func poSnapshot(po *procurement.PurchaseOrder) map[string]interface{} {
	data, err := json.Marshal(po)
	if err != nil {
		return nil
	}
	var snapshot map[string]interface{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
