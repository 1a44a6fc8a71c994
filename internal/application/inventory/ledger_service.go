package inventory

import (
	"context"
	"fmt"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService mutates stock through locked read-modify-write cycles and
// appends one ledger entry per mutation. All coordination is row locking
// inside the transaction scope; the service holds no in-process state.
type LedgerService struct {
	scope           uow.TransactionScope
	permissions     shared.PermissionChecker
	idempotency     shared.IdempotencyStore
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewLedgerService creates a new LedgerService. The idempotency store may be
// nil; callers then get the plain at-most-once-per-commit semantics.
func NewLedgerService(scope uow.TransactionScope, permissions shared.PermissionChecker, idempotency shared.IdempotencyStore, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:       scope,
		permissions: permissions,
		idempotency: idempotency,
		logger:      logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *LedgerService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Adjust changes the stock of one pair by delta under a row lock. A negative
// result is rejected with the row untouched; a missing row is created when
// the delta is non-negative.
func (s *LedgerService) Adjust(ctx context.Context, actor shared.Actor, input AdjustInput) (*AdjustResult, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityStockManage); err != nil {
		return nil, err
	}
	if duplicate, err := s.claimToken(ctx, input.IdempotencyToken); err != nil {
		return nil, err
	} else if duplicate {
		return &AdjustResult{WarehouseID: input.WarehouseID, ProductID: input.ProductID, Duplicate: true}, nil
	}

	var result *AdjustResult
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		item, err := s.applyDelta(ctx, repos, actor, input.WarehouseID, input.ProductID,
			input.Delta, inventory.LedgerEntryAdjust, input.CostPrice, input.Reason, nil)
		if err != nil {
			return err
		}
		result = &AdjustResult{
			WarehouseID: input.WarehouseID,
			ProductID:   input.ProductID,
			NewQuantity: item.Quantity,
		}
		return nil
	})
	if err != nil {
		s.releaseToken(ctx, input.IdempotencyToken)
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordLedgerMutation(ctx, actor.TenantID, telemetry.LedgerOpAdjust)
	}
	s.logger.Info("Stock adjusted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("warehouse_id", input.WarehouseID.String()),
		zap.String("product_id", input.ProductID.String()),
		zap.String("delta", input.Delta.String()),
		zap.String("new_quantity", result.NewQuantity.String()))

	return result, nil
}

// Transfer moves stock between two warehouses. Per item the source row is
// locked and decremented before the destination row, all-or-nothing across
// the item list, two ledger entries per item.
func (s *LedgerService) Transfer(ctx context.Context, actor shared.Actor, input TransferInput) (*TransferResult, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityStockManage); err != nil {
		return nil, err
	}
	if input.FromWarehouseID == input.ToWarehouseID {
		return nil, shared.NewValidationError("SAME_WAREHOUSE", "Source and destination warehouses must differ")
	}
	if duplicate, err := s.claimToken(ctx, input.IdempotencyToken); err != nil {
		return nil, err
	} else if duplicate {
		return &TransferResult{Duplicate: true}, nil
	}

	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if _, err := repos.Warehouses().FindByIDForTenant(ctx, actor.TenantID, input.FromWarehouseID); err != nil {
			return err
		}
		if _, err := repos.Warehouses().FindByIDForTenant(ctx, actor.TenantID, input.ToWarehouseID); err != nil {
			return err
		}

		for _, item := range input.Items {
			if item.Quantity.LessThanOrEqual(decimal.Zero) {
				return shared.NewValidationError("INVALID_QUANTITY",
					fmt.Sprintf("Transfer quantity for product %s must be positive", item.ProductID))
			}
			// Source before destination, the fixed lock order all callers use.
			if _, err := s.applyDelta(ctx, repos, actor, input.FromWarehouseID, item.ProductID,
				item.Quantity.Neg(), inventory.LedgerEntryTransfer, decimal.Zero, input.Reason, nil); err != nil {
				return err
			}
			if _, err := s.applyDelta(ctx, repos, actor, input.ToWarehouseID, item.ProductID,
				item.Quantity, inventory.LedgerEntryTransfer, decimal.Zero, input.Reason, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.releaseToken(ctx, input.IdempotencyToken)
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordLedgerMutation(ctx, actor.TenantID, telemetry.LedgerOpTransfer)
	}
	s.logger.Info("Stock transferred",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("from", input.FromWarehouseID.String()),
		zap.String("to", input.ToWarehouseID.String()),
		zap.Int("items", len(input.Items)))

	return &TransferResult{ItemCount: len(input.Items)}, nil
}

// SetMinStock sets the low-stock threshold of one pair
func (s *LedgerService) SetMinStock(ctx context.Context, actor shared.Actor, input SetMinStockInput) error {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityStockManage); err != nil {
		return err
	}

	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		item, err := repos.StockItems().FindForUpdate(ctx, actor.TenantID, input.WarehouseID, input.ProductID)
		if err != nil {
			if shared.KindOf(err) != shared.KindNotFound {
				return err
			}
			item, err = inventory.NewStockItem(actor.TenantID, input.WarehouseID, input.ProductID, decimal.Zero)
			if err != nil {
				return err
			}
		}
		if err := item.SetMinStock(input.MinStock); err != nil {
			return err
		}
		return repos.StockItems().Save(ctx, item)
	})
}

// CheckAlerts lists every pair at or below its MinStock threshold
func (s *LedgerService) CheckAlerts(ctx context.Context, actor shared.Actor) ([]StockAlertDTO, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var alerts []StockAlertDTO
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		items, err := repos.StockItems().FindWithThreshold(ctx, actor.TenantID)
		if err != nil {
			return err
		}
		alerts = make([]StockAlertDTO, 0)
		for i := range items {
			level, shortage := items[i].Alert()
			if level == inventory.AlertLevelNone {
				continue
			}
			alerts = append(alerts, StockAlertDTO{
				WarehouseID: items[i].WarehouseID,
				ProductID:   items[i].ProductID,
				Quantity:    items[i].Quantity,
				MinStock:    items[i].MinStock,
				Level:       string(level),
				Shortage:    shortage,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordLowStockCount(ctx, actor.TenantID, int64(len(alerts)))
	}
	return alerts, nil
}

// ListStock pages through the stock positions of a tenant. The below_min
// filter narrows the page to pairs at or below their threshold.
func (s *LedgerService) ListStock(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[StockItemDTO], error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var result *shared.Paginated[StockItemDTO]
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		page, err := repos.StockItems().FindAllForTenant(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]StockItemDTO, 0, len(page.Items))
		for i := range page.Items {
			dtos = append(dtos, toStockItemDTO(&page.Items[i]))
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

// ListLedger pages through the mutation log
func (s *LedgerService) ListLedger(ctx context.Context, actor shared.Actor, filter inventory.LedgerFilter) (*shared.Paginated[LedgerEntryDTO], error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}

	var result *shared.Paginated[LedgerEntryDTO]
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		page, err := repos.Ledger().List(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		dtos := make([]LedgerEntryDTO, 0, len(page.Items))
		for i := range page.Items {
			dtos = append(dtos, toLedgerEntryDTO(&page.Items[i]))
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

// applyDelta is the locked read-modify-write cycle shared by adjust, transfer,
// and receiving: lock the row, apply the delta, append the ledger entry. A
// missing row is created only for non-negative deltas.
func (s *LedgerService) applyDelta(ctx context.Context, repos uow.Repositories, actor shared.Actor, warehouseID, productID uuid.UUID, delta decimal.Decimal, entryType inventory.LedgerEntryType, costPrice decimal.Decimal, reason string, referenceID *uuid.UUID) (*inventory.StockItem, error) {
	if delta.IsZero() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity delta cannot be zero")
	}

	item, err := repos.StockItems().FindForUpdate(ctx, actor.TenantID, warehouseID, productID)
	if err != nil {
		if shared.KindOf(err) != shared.KindNotFound {
			return nil, err
		}
		if delta.IsNegative() {
			return nil, shared.NewValidationError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Product %s has no stock at warehouse %s", productID, warehouseID))
		}
		item, err = inventory.NewStockItem(actor.TenantID, warehouseID, productID, delta)
		if err != nil {
			return nil, err
		}
		entry, err := inventory.NewLedgerEntry(item, entryType, delta, decimal.Zero, costPrice, reason, actor.UserID, referenceID)
		if err != nil {
			return nil, err
		}
		if err := repos.StockItems().Save(ctx, item); err != nil {
			return nil, err
		}
		if err := repos.Ledger().Append(ctx, entry); err != nil {
			return nil, err
		}
		return item, nil
	}

	before := item.Quantity
	if err := item.Apply(delta); err != nil {
		return nil, err
	}
	entry, err := inventory.NewLedgerEntry(item, entryType, delta, before, costPrice, reason, actor.UserID, referenceID)
	if err != nil {
		return nil, err
	}
	if err := repos.StockItems().Save(ctx, item); err != nil {
		return nil, err
	}
	if err := repos.Ledger().Append(ctx, entry); err != nil {
		return nil, err
	}
	return item, nil
}

// claimToken marks the caller-supplied idempotency token processed. It
// reports true when the token was already claimed by an earlier call.
func (s *LedgerService) claimToken(ctx context.Context, token string) (bool, error) {
	if token == "" || s.idempotency == nil {
		return false, nil
	}
	fresh, err := s.idempotency.MarkProcessed(ctx, token, shared.DefaultIdempotencyTTL)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

// releaseToken frees a claimed token after the guarded mutation failed, so a
// retry with the same token is not answered as a duplicate of work that never
// committed. A failed release only costs retryability until the TTL expires.
func (s *LedgerService) releaseToken(ctx context.Context, token string) {
	if token == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, token); err != nil {
		s.logger.Warn("Failed to release idempotency token", zap.Error(err))
	}
}
