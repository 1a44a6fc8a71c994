package procurement

import (
	"context"
	"fmt"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceivingService reconciles goods-in confirmations against purchase orders
// and posts the stock increases to the inventory ledger
type ReceivingService struct {
	scope           uow.TransactionScope
	permissions     shared.PermissionChecker
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(scope uow.TransactionScope, permissions shared.PermissionChecker, logger *zap.Logger) *ReceivingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceivingService{
		scope:       scope,
		permissions: permissions,
		logger:      logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *ReceivingService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ConfirmReceipt applies the submitted receipt lines to the order, posts one
// ledger increase per line in submission order, and derives the aggregate
// status, all inside a single transaction. A line exceeding its remaining
// quantity fails the whole call.
func (s *ReceivingService) ConfirmReceipt(ctx context.Context, actor shared.Actor, input ConfirmReceiptInput) (*ReceiptResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receiving", "confirm_receipt",
		telemetry.WithAttribute(telemetry.SpanAttrPOID, input.POID))
	defer span.End()

	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *ReceiptResult
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if _, err := repos.Warehouses().FindByIDForTenant(ctx, actor.TenantID, input.WarehouseID); err != nil {
			return err
		}
		po, err := repos.PurchaseOrders().FindByIDForTenant(ctx, actor.TenantID, input.POID)
		if err != nil {
			return err
		}
		before := poSnapshot(po)

		lines := make([]procurement.ReceiptLine, 0, len(input.Items))
		for _, item := range input.Items {
			lines = append(lines, procurement.ReceiptLine{
				POItemID:  item.POItemID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		applied, err := po.Receive(lines)
		if err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return fmt.Errorf("save purchase order %s: %w", po.PONo, err)
		}

		// Stock rows are locked and incremented in submission order, the
		// same fixed order concurrent receipts use.
		for _, line := range applied {
			if err := s.postLedgerIncrease(ctx, repos, actor, input.WarehouseID, po.ID, line); err != nil {
				return err
			}
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

		result = &ReceiptResult{
			POID:             po.ID,
			Status:           string(po.Status),
			AllFullyReceived: po.AllFullyReceived(),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "receipt_applied",
		telemetry.SpanAttrPOStatus, result.Status,
		"line_count", len(input.Items))

	if s.businessMetrics != nil {
		s.businessMetrics.RecordReceiptPosted(ctx, actor.TenantID, int64(len(input.Items)))
	}
	s.logger.Info("Receipt confirmed",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("po_id", input.POID.String()),
		zap.String("status", result.Status),
		zap.Bool("all_fully_received", result.AllFullyReceived))

	return result, nil
}

// postLedgerIncrease locks (or creates) the stock row for one received line
// and appends the matching RECEIPT ledger entry
func (s *ReceivingService) postLedgerIncrease(ctx context.Context, repos uow.Repositories, actor shared.Actor, warehouseID, poID uuid.UUID, line procurement.ReceivedLineInfo) error {
	item, err := repos.StockItems().FindForUpdate(ctx, actor.TenantID, warehouseID, line.ProductID)
	if err != nil {
		if shared.KindOf(err) != shared.KindNotFound {
			return err
		}
		item, err = inventory.NewStockItem(actor.TenantID, warehouseID, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		entry, err := inventory.NewLedgerEntry(item, inventory.LedgerEntryReceipt, line.Quantity,
			item.Quantity.Sub(line.Quantity), line.UnitPrice, "PO receipt", actor.UserID, &poID)
		if err != nil {
			return err
		}
		if err := repos.StockItems().Save(ctx, item); err != nil {
			return err
		}
		return repos.Ledger().Append(ctx, entry)
	}

	before := item.Quantity
	if err := item.Apply(line.Quantity); err != nil {
		return err
	}
	entry, err := inventory.NewLedgerEntry(item, inventory.LedgerEntryReceipt, line.Quantity,
		before, line.UnitPrice, "PO receipt", actor.UserID, &poID)
	if err != nil {
		return err
	}
	if err := repos.StockItems().Save(ctx, item); err != nil {
		return err
	}
	return repos.Ledger().Append(ctx, entry)
}
