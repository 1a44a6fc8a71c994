package routing

import (
	"context"
	"fmt"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PendingPoolService works the pending purchase pool: the draft purchase
// orders, pending production tasks, and unmatched order lines that still
// need a human decision after routing
type PendingPoolService struct {
	scope       uow.TransactionScope
	permissions shared.PermissionChecker
	logger      *zap.Logger
}

// NewPendingPoolService creates a new PendingPoolService
func NewPendingPoolService(scope uow.TransactionScope, permissions shared.PermissionChecker, logger *zap.Logger) *PendingPoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingPoolService{
		scope:       scope,
		permissions: permissions,
		logger:      logger,
	}
}

// ListPendingPool aggregates the pool sources into one paginated listing:
// draft purchase orders first, then pending production tasks, then unmatched
// lines. The supplier and order filters apply to every source; the product
// type filter keeps FINISHED sources apart from the custom fabrication ones.
func (s *PendingPoolService) ListPendingPool(ctx context.Context, actor shared.Actor, query PendingPoolQuery) (*shared.Paginated[PendingPoolItem], error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilitySupplyChainView); err != nil {
		return nil, err
	}
	if query.ItemType == "" {
		query.ItemType = PendingItemAll
	}
	if !query.ItemType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ITEM_TYPE",
			fmt.Sprintf("Unknown pool item type: %s", query.ItemType))
	}
	if query.ProductType != "" && !ordering.ProductType(query.ProductType).IsValid() {
		return nil, shared.NewValidationError("INVALID_PRODUCT_TYPE",
			fmt.Sprintf("Unknown product type: %s", query.ProductType))
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	items := make([]PendingPoolItem, 0)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if query.ItemType == PendingItemAll || query.ItemType == PendingItemDraftPO {
			drafts, err := repos.PurchaseOrders().FindByStatus(ctx, actor.TenantID, procurement.POStatusDraft)
			if err != nil {
				return err
			}
			for i := range drafts {
				if item, ok := poolItemFromPO(&drafts[i], query); ok {
					items = append(items, item)
				}
			}
		}

		if query.ItemType == PendingItemAll || query.ItemType == PendingItemPendingTask {
			tasks, err := repos.ProductionTasks().FindByStatus(ctx, actor.TenantID, procurement.TaskStatusPending)
			if err != nil {
				return err
			}
			for i := range tasks {
				if item, ok := poolItemFromTask(&tasks[i], query); ok {
					items = append(items, item)
				}
			}
		}

		if query.ItemType == PendingItemAll || query.ItemType == PendingItemUnmatchedLine {
			lineQuery := ordering.UnassignedQuery{
				SupplierID: query.SupplierID,
				OrderID:    query.OrderID,
			}
			if query.ProductType != "" {
				productType := ordering.ProductType(query.ProductType)
				lineQuery.ProductType = &productType
			}
			lines, err := repos.OrderLines().Unassigned(ctx, actor.TenantID, lineQuery)
			if err != nil {
				return err
			}
			for i := range lines {
				items = append(items, poolItemFromLine(&lines[i]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	page := paginatePoolItems(items, query.Page, query.PageSize)
	return &page, nil
}

// AssignLines routes the given unmatched lines to one supplier, creating one
// draft purchase order per sales order. Lines already claimed by another
// document are dropped from the request; a request with nothing left to
// assign fails.
func (s *PendingPoolService) AssignLines(ctx context.Context, actor shared.Actor, input AssignLinesInput) (*AssignLinesResult, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		return nil, err
	}
	poType := procurement.POTypeFinished
	if input.POType != "" {
		poType = procurement.POType(input.POType)
	}
	if poType != procurement.POTypeFinished && poType != procurement.POTypeFabric {
		return nil, shared.NewValidationError("INVALID_PO_TYPE",
			fmt.Sprintf("Pool assignment cannot create a %s order", poType))
	}

	result := &AssignLinesResult{CreatedPOIDs: make([]uuid.UUID, 0)}
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		supplier, err := repos.Suppliers().FindByIDForTenant(ctx, actor.TenantID, input.SupplierID)
		if err != nil {
			return err
		}
		if !supplier.IsActive {
			return shared.NewValidationError("SUPPLIER_INACTIVE",
				fmt.Sprintf("Supplier %s is inactive", supplier.Name))
		}

		lines, err := repos.OrderLines().FindUnassigned(ctx, actor.TenantID, input.LineIDs)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return shared.NewValidationError("NO_ASSIGNABLE_LINES",
				"None of the requested lines is still unassigned")
		}

		for _, group := range groupLinesByOrder(lines) {
			orderID := group[0].OrderID
			po, err := s.createDraftPO(ctx, repos, actor, supplier, poType, &orderID, group)
			if err != nil {
				return err
			}
			result.CreatedPOIDs = append(result.CreatedPOIDs, po.ID)
			result.AssignedLineCount += len(group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Pool lines assigned to supplier",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("supplier_id", input.SupplierID.String()),
		zap.Int("assigned_lines", result.AssignedLineCount),
		zap.Int("created_pos", len(result.CreatedPOIDs)))

	return result, nil
}

// MergeLines combines unmatched lines across sales orders into draft purchase
// orders, one per supplier. All lines must share a product type; the order
// type follows it. Lines whose supplier is unknown or inactive are skipped
// with a warning rather than failing the merge.
func (s *PendingPoolService) MergeLines(ctx context.Context, actor shared.Actor, input MergeLinesInput) (*MergeLinesResult, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		return nil, err
	}

	result := &MergeLinesResult{CreatedPOIDs: make([]uuid.UUID, 0)}
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		lines, err := repos.OrderLines().FindUnassigned(ctx, actor.TenantID, input.LineIDs)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return shared.NewValidationError("NO_ASSIGNABLE_LINES",
				"None of the requested lines is still unassigned")
		}

		productType := lines[0].ProductType
		for i := range lines {
			if lines[i].ProductType != productType {
				return shared.NewValidationError("MIXED_PRODUCT_TYPES",
					"Cannot merge finished and custom lines into one order")
			}
		}
		poType := procurement.POTypeFinished
		if productType == ordering.ProductTypeCustom {
			poType = procurement.POTypeFabric
		}

		groups, missing := groupLinesBySupplier(lines, input.SupplierID)
		if missing > 0 && input.SupplierID == nil {
			return shared.NewValidationError("NO_SUPPLIER",
				fmt.Sprintf("%d lines have no default supplier; pass one explicitly", missing))
		}

		supplierIDs := make([]uuid.UUID, 0, len(groups))
		for _, group := range groups {
			supplierIDs = append(supplierIDs, group.supplierID)
		}
		suppliers, err := repos.Suppliers().FindByIDs(ctx, actor.TenantID, supplierIDs)
		if err != nil {
			return err
		}

		for _, group := range groups {
			supplier, ok := suppliers[group.supplierID]
			if !ok || !supplier.IsActive {
				result.SkippedLineCount += len(group.lines)
				s.logger.Warn("Skipping pool merge group without usable supplier",
					zap.String("tenant_id", actor.TenantID.String()),
					zap.String("supplier_id", group.supplierID.String()),
					zap.Int("line_count", len(group.lines)))
				continue
			}

			po, err := s.createDraftPO(ctx, repos, actor, supplier, poType, nil, group.lines)
			if err != nil {
				return err
			}
			result.CreatedPOIDs = append(result.CreatedPOIDs, po.ID)
			result.MergedLineCount += len(group.lines)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Pool lines merged into purchase orders",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.Int("merged_lines", result.MergedLineCount),
		zap.Int("skipped_lines", result.SkippedLineCount),
		zap.Int("created_pos", len(result.CreatedPOIDs)))

	return result, nil
}

// SubmitDrafts sends a batch of draft purchase orders into the confirmation
// flow in one transaction. Unknown IDs and orders already past DRAFT count as
// skipped; a batch with no draft at all fails instead of silently doing
// nothing.
func (s *PendingPoolService) SubmitDrafts(ctx context.Context, actor shared.Actor, input SubmitDraftsInput) (*SubmitDraftsResult, error) {
	if err := s.permissions.Check(ctx, actor, shared.CapabilityProcurementManage); err != nil {
		return nil, err
	}

	result := &SubmitDraftsResult{}
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		orders, err := repos.PurchaseOrders().FindByIDsForTenant(ctx, actor.TenantID, input.POIDs)
		if err != nil {
			return err
		}

		drafts := make([]*procurement.PurchaseOrder, 0, len(orders))
		for i := range orders {
			if orders[i].IsDraft() {
				drafts = append(drafts, &orders[i])
			}
		}
		if len(drafts) == 0 {
			return shared.NewValidationError("NO_DRAFTS",
				"None of the requested orders is still a draft")
		}

		for _, po := range drafts {
			before := auditSnapshot(po)
			if err := po.Submit(); err != nil {
				return err
			}
			if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
				return err
			}
			if err := repos.Audit().Record(ctx, shared.AuditEntry{
				Actor:      actor,
				EntityType: "PurchaseOrder",
				EntityID:   po.ID,
				Action:     shared.AuditActionUpdate,
				Before:     before,
				After:      auditSnapshot(po),
			}); err != nil {
				return err
			}
			result.SubmittedCount++
		}
		result.SkippedCount = len(input.POIDs) - result.SubmittedCount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Draft purchase orders submitted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.Int("submitted", result.SubmittedCount),
		zap.Int("skipped", result.SkippedCount))

	return result, nil
}

// createDraftPO mints a number, builds a draft order over the merged lines,
// claims the lines, and records the audit entry, all inside the caller's
// transaction
func (s *PendingPoolService) createDraftPO(ctx context.Context, repos uow.Repositories, actor shared.Actor, supplier *partner.Supplier, poType procurement.POType, orderID *uuid.UUID, lines []ordering.OrderLine) (*procurement.PurchaseOrder, error) {
	poNo, err := repos.DocumentNumbers().Generate(ctx, actor.TenantID, "PO")
	if err != nil {
		return nil, err
	}

	po, err := procurement.NewPurchaseOrder(actor.TenantID, poNo, supplier.ID, supplier.Name, poType, orderID)
	if err != nil {
		return nil, err
	}
	po.SetCreatedBy(actor.UserID)

	items := make([]resolvedItem, 0, len(lines))
	lineIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		items = append(items, resolvedItem{line: line})
		lineIDs = append(lineIDs, line.ID)
	}
	for _, item := range mergeByProduct(items) {
		if _, err := po.AddItem(item.line.ProductID, item.line.ProductName, item.quantity, item.line.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
		return nil, fmt.Errorf("save purchase order %s: %w", poNo, err)
	}
	if err := repos.OrderLines().Assign(ctx, actor.TenantID, lineIDs, po.ID); err != nil {
		return nil, err
	}
	if err := repos.Audit().Record(ctx, shared.AuditEntry{
		Actor:      actor,
		EntityType: "PurchaseOrder",
		EntityID:   po.ID,
		Action:     shared.AuditActionCreate,
		After:      auditSnapshot(po),
	}); err != nil {
		return nil, err
	}
	return po, nil
}

func poolItemFromPO(po *procurement.PurchaseOrder, query PendingPoolQuery) (PendingPoolItem, bool) {
	if query.SupplierID != nil && po.SupplierID != *query.SupplierID {
		return PendingPoolItem{}, false
	}
	if query.OrderID != nil && (po.OrderID == nil || *po.OrderID != *query.OrderID) {
		return PendingPoolItem{}, false
	}
	switch ordering.ProductType(query.ProductType) {
	case ordering.ProductTypeFinished:
		if po.Type != procurement.POTypeFinished {
			return PendingPoolItem{}, false
		}
	case ordering.ProductTypeCustom:
		if po.Type != procurement.POTypeFabric {
			return PendingPoolItem{}, false
		}
	}

	quantity := decimal.Zero
	for i := range po.Items {
		quantity = quantity.Add(po.Items[i].Quantity)
	}
	supplierID := po.SupplierID
	return PendingPoolItem{
		ItemType:     PendingItemDraftPO,
		ID:           po.ID,
		DocumentNo:   po.PONo,
		OrderID:      po.OrderID,
		SupplierID:   &supplierID,
		SupplierName: po.SupplierName,
		Quantity:     quantity,
		Status:       po.Status.String(),
	}, true
}

func poolItemFromTask(task *procurement.ProductionTask, query PendingPoolQuery) (PendingPoolItem, bool) {
	// Production tasks only ever carry custom fabrication
	if ordering.ProductType(query.ProductType) == ordering.ProductTypeFinished {
		return PendingPoolItem{}, false
	}
	if query.SupplierID != nil && task.ProcessorID != *query.SupplierID {
		return PendingPoolItem{}, false
	}
	if query.OrderID != nil && (task.OrderID == nil || *task.OrderID != *query.OrderID) {
		return PendingPoolItem{}, false
	}

	quantity := decimal.Zero
	for i := range task.Items {
		quantity = quantity.Add(task.Items[i].Quantity)
	}
	processorID := task.ProcessorID
	return PendingPoolItem{
		ItemType:     PendingItemPendingTask,
		ID:           task.ID,
		DocumentNo:   task.TaskNo,
		OrderID:      task.OrderID,
		SupplierID:   &processorID,
		SupplierName: task.ProcessorName,
		Quantity:     quantity,
		Status:       string(task.Status),
	}, true
}

func poolItemFromLine(line *ordering.OrderLine) PendingPoolItem {
	orderID := line.OrderID
	return PendingPoolItem{
		ItemType:    PendingItemUnmatchedLine,
		ID:          line.ID,
		OrderID:     &orderID,
		SupplierID:  line.DefaultSupplierID,
		ProductName: line.ProductName,
		Quantity:    line.Quantity,
	}
}

// groupLinesByOrder buckets lines per sales order in first-appearance order
func groupLinesByOrder(lines []ordering.OrderLine) [][]ordering.OrderLine {
	groups := make([][]ordering.OrderLine, 0)
	index := make(map[uuid.UUID]int)
	for _, line := range lines {
		pos, ok := index[line.OrderID]
		if !ok {
			pos = len(groups)
			index[line.OrderID] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], line)
	}
	return groups
}

// supplierGroup is one merge bucket: the lines bound for one supplier
type supplierGroup struct {
	supplierID uuid.UUID
	lines      []ordering.OrderLine
}

// groupLinesBySupplier buckets lines by the forced supplier when given,
// otherwise by each line's default supplier. The second return value counts
// lines that resolved to no supplier at all.
func groupLinesBySupplier(lines []ordering.OrderLine, forced *uuid.UUID) ([]supplierGroup, int) {
	groups := make([]supplierGroup, 0)
	index := make(map[uuid.UUID]int)
	missing := 0
	for _, line := range lines {
		target := forced
		if target == nil {
			target = line.DefaultSupplierID
		}
		if target == nil {
			missing++
			continue
		}
		pos, ok := index[*target]
		if !ok {
			pos = len(groups)
			index[*target] = pos
			groups = append(groups, supplierGroup{supplierID: *target})
		}
		groups[pos].lines = append(groups[pos].lines, line)
	}
	return groups, missing
}

// paginatePoolItems slices the combined listing in memory; the pool is small
// by nature since it only holds documents awaiting action
func paginatePoolItems(items []PendingPoolItem, page, pageSize int) shared.Paginated[PendingPoolItem] {
	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return shared.NewPaginated(items[start:end], int64(len(items)), page, pageSize)
}
