package routing

import (
	"context"
	"fmt"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// docKind distinguishes the two document queues a routed item can land in
type docKind int

const (
	docPurchaseOrder docKind = iota
	docProductionTask
)

// resolvedItem pairs an order line with its routing decision
type resolvedItem struct {
	line     ordering.OrderLine
	supplier uuid.UUID
	kind     docKind
	poType   procurement.POType
}

// groupKey identifies one output document: a distinct (supplier, document
// kind, po type) combination within a routing run
type groupKey struct {
	supplier uuid.UUID
	kind     docKind
	poType   procurement.POType
}

// SplitService routes the lines of a confirmed order into purchase orders and
// production tasks in one atomic run
type SplitService struct {
	scope           uow.TransactionScope
	permissions     shared.PermissionChecker
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewSplitService creates a new SplitService
func NewSplitService(scope uow.TransactionScope, permissions shared.PermissionChecker, logger *zap.Logger) *SplitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SplitService{
		scope:       scope,
		permissions: permissions,
		logger:      logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *SplitService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ExecuteSplitRouting loads the order's lines, resolves a target for each via
// the rule set with the line's default supplier as fallback, groups resolved
// lines into one document per (supplier, kind, type), and creates all
// documents inside a single transaction. Unresolved lines surface in the
// result as unmatched; an empty order yields an all-zero summary.
func (s *SplitService) ExecuteSplitRouting(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*SplitResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "routing", "execute_split",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID))
	defer span.End()

	if err := s.permissions.Check(ctx, actor, shared.CapabilityOrderRouting); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if orderID == uuid.Nil {
		err := shared.NewValidationError("INVALID_ORDER", "Order ID cannot be empty")
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &SplitResult{
		CreatedPOIDs:     make([]uuid.UUID, 0),
		CreatedTaskIDs:   make([]uuid.UUID, 0),
		UnmatchedItemIDs: make([]uuid.UUID, 0),
	}

	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		lines, err := repos.OrderLines().LinesForOrder(ctx, actor.TenantID, orderID)
		if err != nil {
			return err
		}
		result.Summary.TotalItems = len(lines)
		if len(lines) == 0 {
			return nil
		}

		rules, err := repos.SplitRules().FindActiveForTenant(ctx, actor.TenantID)
		if err != nil {
			return err
		}

		resolved, unmatched := s.resolveLines(lines, rules, result)

		suppliers, err := s.lookupSuppliers(ctx, repos.Suppliers(), actor.TenantID, resolved)
		if err != nil {
			return err
		}

		// Custom lines routed by default supplier pick their queue from the
		// supplier's capability. Only a pure processor fabricates; a partner
		// that can also sell fabric gets a fabric purchase order instead.
		routable := make([]resolvedItem, 0, len(resolved))
		for _, item := range resolved {
			supplier, ok := suppliers[item.supplier]
			if !ok || !supplier.IsActive {
				unmatched = append(unmatched, item.line.ID)
				continue
			}
			if item.kind == docProductionTask && supplier.Capability.CanSupply() {
				item.kind = docPurchaseOrder
				item.poType = procurement.POTypeFabric
			}
			routable = append(routable, item)
		}

		if err := s.createDocuments(ctx, repos, actor, orderID, routable, suppliers, result); err != nil {
			return err
		}

		result.UnmatchedItemIDs = unmatched
		result.Summary.UnmatchedCount = len(unmatched)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSplitCount, result.Summary.POCount+result.Summary.WOCount,
		"unmatched_count", result.Summary.UnmatchedCount)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordRoutingRun(ctx, actor.TenantID,
			int64(result.Summary.POCount), int64(result.Summary.WOCount), int64(result.Summary.UnmatchedCount))
	}

	s.logger.Info("Split routing executed",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("order_id", orderID.String()),
		zap.Int("total_items", result.Summary.TotalItems),
		zap.Int("po_count", result.Summary.POCount),
		zap.Int("wo_count", result.Summary.WOCount),
		zap.Int("unmatched", result.Summary.UnmatchedCount))

	return result, nil
}

// resolveLines assigns each line a supplier and target queue. The rule engine
// decides first; lines without a rule match fall back to their default
// supplier; the rest are unmatched.
func (s *SplitService) resolveLines(lines []ordering.OrderLine, rules []routing.SplitRule, result *SplitResult) ([]resolvedItem, []uuid.UUID) {
	resolved := make([]resolvedItem, 0, len(lines))
	unmatched := make([]uuid.UUID, 0)

	for _, line := range lines {
		finished := line.ProductType == ordering.ProductTypeFinished
		if finished {
			result.Summary.FinishedCount++
		} else {
			result.Summary.CustomCount++
		}

		item := resolvedItem{line: line}
		if finished {
			item.kind = docPurchaseOrder
			item.poType = procurement.POTypeFinished
		} else {
			item.kind = docProductionTask
			item.poType = procurement.POTypeFabric
		}

		match := routing.Resolve(&line, rules)
		switch {
		case match.Matched() && match.TargetSupplierID != nil:
			item.supplier = *match.TargetSupplierID
			if !finished && match.TargetType == routing.TargetPurchaseOrder {
				item.kind = docPurchaseOrder
			}
		case line.DefaultSupplierID != nil:
			item.supplier = *line.DefaultSupplierID
		default:
			unmatched = append(unmatched, line.ID)
			continue
		}

		resolved = append(resolved, item)
	}

	return resolved, unmatched
}

// lookupSuppliers batches the supplier fetch for a routing run into a single
// repository call
func (s *SplitService) lookupSuppliers(ctx context.Context, repo partner.SupplierRepository, tenantID uuid.UUID, resolved []resolvedItem) (map[uuid.UUID]*partner.Supplier, error) {
	ids := make([]uuid.UUID, 0, len(resolved))
	seen := make(map[uuid.UUID]struct{}, len(resolved))
	for _, item := range resolved {
		if _, ok := seen[item.supplier]; ok {
			continue
		}
		seen[item.supplier] = struct{}{}
		ids = append(ids, item.supplier)
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*partner.Supplier{}, nil
	}
	return repo.FindByIDs(ctx, tenantID, ids)
}

// createDocuments groups routable items and inserts one document per group,
// minting numbers and writing an audit entry inside the same transaction
func (s *SplitService) createDocuments(ctx context.Context, repos uow.Repositories, actor shared.Actor, orderID uuid.UUID, items []resolvedItem, suppliers map[uuid.UUID]*partner.Supplier, result *SplitResult) error {
	groups := make(map[groupKey][]resolvedItem)
	order := make([]groupKey, 0)
	for _, item := range items {
		key := groupKey{supplier: item.supplier, kind: item.kind, poType: item.poType}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	for _, key := range order {
		supplier := suppliers[key.supplier]
		switch key.kind {
		case docPurchaseOrder:
			po, err := s.createPurchaseOrder(ctx, repos, actor, orderID, key, supplier, groups[key])
			if err != nil {
				return err
			}
			result.CreatedPOIDs = append(result.CreatedPOIDs, po.ID)
			result.Summary.POCount++
		case docProductionTask:
			task, err := s.createProductionTask(ctx, repos, actor, orderID, supplier, groups[key])
			if err != nil {
				return err
			}
			result.CreatedTaskIDs = append(result.CreatedTaskIDs, task.ID)
			result.Summary.WOCount++
		}
	}
	return nil
}

func (s *SplitService) createPurchaseOrder(ctx context.Context, repos uow.Repositories, actor shared.Actor, orderID uuid.UUID, key groupKey, supplier *partner.Supplier, items []resolvedItem) (*procurement.PurchaseOrder, error) {
	poNo, err := repos.DocumentNumbers().Generate(ctx, actor.TenantID, "PO")
	if err != nil {
		return nil, err
	}

	po, err := procurement.NewPurchaseOrder(actor.TenantID, poNo, supplier.ID, supplier.Name, key.poType, &orderID)
	if err != nil {
		return nil, err
	}
	po.SetCreatedBy(actor.UserID)

	for _, item := range mergeByProduct(items) {
		if _, err := po.AddItem(item.line.ProductID, item.line.ProductName, item.quantity, item.line.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
		return nil, fmt.Errorf("save purchase order %s: %w", poNo, err)
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

func (s *SplitService) createProductionTask(ctx context.Context, repos uow.Repositories, actor shared.Actor, orderID uuid.UUID, supplier *partner.Supplier, items []resolvedItem) (*procurement.ProductionTask, error) {
	taskNo, err := repos.DocumentNumbers().Generate(ctx, actor.TenantID, "WO")
	if err != nil {
		return nil, err
	}

	task, err := procurement.NewProductionTask(actor.TenantID, taskNo, supplier.ID, supplier.Name, &orderID)
	if err != nil {
		return nil, err
	}
	task.SetCreatedBy(actor.UserID)

	for _, item := range mergeByProduct(items) {
		if _, err := task.AddItem(item.line.ProductID, item.line.ProductName, item.quantity); err != nil {
			return nil, err
		}
	}

	if err := repos.ProductionTasks().Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save production task %s: %w", taskNo, err)
	}
	if err := repos.Audit().Record(ctx, shared.AuditEntry{
		Actor:      actor,
		EntityType: "ProductionTask",
		EntityID:   task.ID,
		Action:     shared.AuditActionCreate,
		After:      auditSnapshot(task),
	}); err != nil {
		return nil, err
	}
	return task, nil
}

// mergedLine carries the summed quantity of a product within one group
type mergedLine struct {
	line     ordering.OrderLine
	quantity decimal.Decimal
}

// mergeByProduct folds repeated products within a group into one document
// line, preserving first-appearance order. The first line's unit price wins.
func mergeByProduct(items []resolvedItem) []mergedLine {
	merged := make([]mergedLine, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if pos, ok := index[item.line.ProductID]; ok {
			merged[pos].quantity = merged[pos].quantity.Add(item.line.Quantity)
			continue
		}
		index[item.line.ProductID] = len(merged)
		merged = append(merged, mergedLine{line: item.line, quantity: item.line.Quantity})
	}
	return merged
}
