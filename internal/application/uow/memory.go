package uow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory implementation of the transaction scope and all
// repositories. Execute snapshots the whole store and restores it when the
// function fails, giving tests real all-or-nothing semantics without a
// database. Not safe for production use.
type MemoryStore struct {
	mu sync.Mutex

	stock      map[string]*inventory.StockItem
	ledger     []inventory.LedgerEntry
	orders     map[uuid.UUID]*procurement.PurchaseOrder
	shipments  []procurement.Shipment
	tasks      map[uuid.UUID]*procurement.ProductionTask
	rules      map[uuid.UUID]*routing.SplitRule
	suppliers  map[uuid.UUID]*partner.Supplier
	warehouses map[uuid.UUID]*partner.Warehouse
	orderLines map[uuid.UUID][]ordering.OrderLine
	audits     []shared.AuditEntry
	sequences  map[string]int

	// SupplierLookupCalls counts FindByIDs invocations for batching checks
	SupplierLookupCalls int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stock:      make(map[string]*inventory.StockItem),
		orders:     make(map[uuid.UUID]*procurement.PurchaseOrder),
		tasks:      make(map[uuid.UUID]*procurement.ProductionTask),
		rules:      make(map[uuid.UUID]*routing.SplitRule),
		suppliers:  make(map[uuid.UUID]*partner.Supplier),
		warehouses: make(map[uuid.UUID]*partner.Warehouse),
		orderLines: make(map[uuid.UUID][]ordering.OrderLine),
		sequences:  make(map[string]int),
	}
}

// Execute runs fn against the store, restoring the pre-call state when fn
// returns an error
func (m *MemoryStore) Execute(_ context.Context, fn func(repos Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	stock      map[string]*inventory.StockItem
	ledger     []inventory.LedgerEntry
	orders     map[uuid.UUID]*procurement.PurchaseOrder
	shipments  []procurement.Shipment
	tasks      map[uuid.UUID]*procurement.ProductionTask
	rules      map[uuid.UUID]*routing.SplitRule
	orderLines map[uuid.UUID][]ordering.OrderLine
	audits     []shared.AuditEntry
	sequences  map[string]int
}

func (m *MemoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		stock:      make(map[string]*inventory.StockItem, len(m.stock)),
		ledger:     append([]inventory.LedgerEntry(nil), m.ledger...),
		orders:     make(map[uuid.UUID]*procurement.PurchaseOrder, len(m.orders)),
		shipments:  append([]procurement.Shipment(nil), m.shipments...),
		tasks:      make(map[uuid.UUID]*procurement.ProductionTask, len(m.tasks)),
		rules:      make(map[uuid.UUID]*routing.SplitRule, len(m.rules)),
		orderLines: make(map[uuid.UUID][]ordering.OrderLine, len(m.orderLines)),
		audits:     append([]shared.AuditEntry(nil), m.audits...),
		sequences:  make(map[string]int, len(m.sequences)),
	}
	for k, v := range m.stock {
		snap.stock[k] = cloneStockItem(v)
	}
	for k, v := range m.orders {
		snap.orders[k] = clonePO(v)
	}
	for k, v := range m.tasks {
		snap.tasks[k] = cloneTask(v)
	}
	for k, v := range m.rules {
		snap.rules[k] = cloneRule(v)
	}
	for k, v := range m.orderLines {
		snap.orderLines[k] = append([]ordering.OrderLine(nil), v...)
	}
	for k, v := range m.sequences {
		snap.sequences[k] = v
	}
	return snap
}

func (m *MemoryStore) restore(snap memorySnapshot) {
	m.stock = snap.stock
	m.ledger = snap.ledger
	m.orders = snap.orders
	m.shipments = snap.shipments
	m.tasks = snap.tasks
	m.rules = snap.rules
	m.orderLines = snap.orderLines
	m.audits = snap.audits
	m.sequences = snap.sequences
}

func cloneStockItem(item *inventory.StockItem) *inventory.StockItem {
	c := *item
	return &c
}

func clonePO(po *procurement.PurchaseOrder) *procurement.PurchaseOrder {
	c := *po
	c.Items = append([]procurement.POItem(nil), po.Items...)
	c.Shipments = append([]procurement.Shipment(nil), po.Shipments...)
	return &c
}

func cloneTask(task *procurement.ProductionTask) *procurement.ProductionTask {
	c := *task
	c.Items = append([]procurement.TaskItem(nil), task.Items...)
	return &c
}

func cloneRule(rule *routing.SplitRule) *routing.SplitRule {
	c := *rule
	c.Conditions = append([]routing.Condition(nil), rule.Conditions...)
	return &c
}

// Repositories accessors

func (m *MemoryStore) StockItems() inventory.StockItemRepository           { return (*memoryStockRepo)(m) }
func (m *MemoryStore) Ledger() inventory.LedgerRepository                 { return (*memoryLedgerRepo)(m) }
func (m *MemoryStore) PurchaseOrders() procurement.PurchaseOrderRepository { return (*memoryPORepo)(m) }
func (m *MemoryStore) ProductionTasks() procurement.ProductionTaskRepository {
	return (*memoryTaskRepo)(m)
}
func (m *MemoryStore) SplitRules() routing.SplitRuleRepository { return (*memoryRuleRepo)(m) }
func (m *MemoryStore) Suppliers() partner.SupplierRepository   { return (*memorySupplierRepo)(m) }
func (m *MemoryStore) Warehouses() partner.WarehouseRepository { return (*memoryWarehouseRepo)(m) }
func (m *MemoryStore) OrderLines() ordering.OrderLineRepository { return (*memoryOrderLineRepo)(m) }
func (m *MemoryStore) Audit() shared.AuditLogger               { return (*memoryAudit)(m) }
func (m *MemoryStore) DocumentNumbers() procurement.DocumentNumberGenerator {
	return (*memoryNumbers)(m)
}

// Seed helpers

// AddSupplier seeds a supplier
func (m *MemoryStore) AddSupplier(s *partner.Supplier) { m.suppliers[s.ID] = s }

// AddWarehouse seeds a warehouse
func (m *MemoryStore) AddWarehouse(w *partner.Warehouse) { m.warehouses[w.ID] = w }

// AddOrderLines seeds the read model lines of an order
func (m *MemoryStore) AddOrderLines(orderID uuid.UUID, lines []ordering.OrderLine) {
	m.orderLines[orderID] = lines
}

// AddRule seeds a routing rule
func (m *MemoryStore) AddRule(r *routing.SplitRule) { m.rules[r.ID] = r }

// AddPurchaseOrder seeds a purchase order
func (m *MemoryStore) AddPurchaseOrder(po *procurement.PurchaseOrder) { m.orders[po.ID] = po }

// AddProductionTask seeds a production task
func (m *MemoryStore) AddProductionTask(task *procurement.ProductionTask) { m.tasks[task.ID] = task }

// OrderLine reads a seeded line back, or nil when unknown
func (m *MemoryStore) OrderLine(id uuid.UUID) *ordering.OrderLine {
	for _, lines := range m.orderLines {
		for i := range lines {
			if lines[i].ID == id {
				line := lines[i]
				return &line
			}
		}
	}
	return nil
}

// AddStock seeds a stock row
func (m *MemoryStore) AddStock(item *inventory.StockItem) {
	m.stock[stockKey(item.TenantID, item.WarehouseID, item.ProductID)] = item
}

// StockQuantity reads a seeded pair's quantity directly
func (m *MemoryStore) StockQuantity(tenantID, warehouseID, productID uuid.UUID) decimal.Decimal {
	if item, ok := m.stock[stockKey(tenantID, warehouseID, productID)]; ok {
		return item.Quantity
	}
	return decimal.Zero
}

// LedgerEntries returns all appended entries in order
func (m *MemoryStore) LedgerEntries() []inventory.LedgerEntry { return m.ledger }

// AuditEntries returns all recorded audit entries in order
func (m *MemoryStore) AuditEntries() []shared.AuditEntry { return m.audits }

// Shipments returns all saved shipments
func (m *MemoryStore) Shipments() []procurement.Shipment { return m.shipments }

// PurchaseOrder reads a stored order
func (m *MemoryStore) PurchaseOrder(id uuid.UUID) *procurement.PurchaseOrder { return m.orders[id] }

// ProductionTask reads a stored task
func (m *MemoryStore) ProductionTask(id uuid.UUID) *procurement.ProductionTask { return m.tasks[id] }

func stockKey(tenantID, warehouseID, productID uuid.UUID) string {
	return tenantID.String() + "|" + warehouseID.String() + "|" + productID.String()
}

// memoryStockRepo

type memoryStockRepo MemoryStore

func (r *memoryStockRepo) FindForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockItem, error) {
	return r.Find(ctx, tenantID, warehouseID, productID)
}

func (r *memoryStockRepo) Find(_ context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockItem, error) {
	item, ok := r.stock[stockKey(tenantID, warehouseID, productID)]
	if !ok {
		return nil, shared.NewNotFoundError("STOCK_NOT_FOUND",
			fmt.Sprintf("No stock row for product %s at warehouse %s", productID, warehouseID))
	}
	return item, nil
}

func (r *memoryStockRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[inventory.StockItem], error) {
	items := make([]inventory.StockItem, 0)
	for _, item := range r.stock {
		if item.TenantID == tenantID {
			items = append(items, *item)
		}
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memoryStockRepo) FindByWarehouse(_ context.Context, tenantID, warehouseID uuid.UUID) ([]inventory.StockItem, error) {
	items := make([]inventory.StockItem, 0)
	for _, item := range r.stock {
		if item.TenantID == tenantID && item.WarehouseID == warehouseID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (r *memoryStockRepo) FindWithThreshold(_ context.Context, tenantID uuid.UUID) ([]inventory.StockItem, error) {
	items := make([]inventory.StockItem, 0)
	for _, item := range r.stock {
		if item.TenantID == tenantID && item.MinStock.IsPositive() {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID.String() < items[j].ProductID.String()
	})
	return items, nil
}

func (r *memoryStockRepo) Save(_ context.Context, item *inventory.StockItem) error {
	r.stock[stockKey(item.TenantID, item.WarehouseID, item.ProductID)] = item
	return nil
}

// memoryLedgerRepo

type memoryLedgerRepo MemoryStore

func (r *memoryLedgerRepo) Append(_ context.Context, entry *inventory.LedgerEntry) error {
	r.ledger = append(r.ledger, *entry)
	return nil
}

func (r *memoryLedgerRepo) List(_ context.Context, tenantID uuid.UUID, filter inventory.LedgerFilter) (*shared.Paginated[inventory.LedgerEntry], error) {
	entries := make([]inventory.LedgerEntry, 0)
	for _, e := range r.ledger {
		if e.TenantID != tenantID {
			continue
		}
		if filter.WarehouseID != nil && e.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != nil && e.Type != *filter.Type {
			continue
		}
		entries = append(entries, e)
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := shared.NewPaginated(entries, int64(len(entries)), filter.Page, pageSize)
	return &page, nil
}

func (r *memoryLedgerRepo) SumDeltas(_ context.Context, tenantID, warehouseID, productID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.ledger {
		if e.TenantID == tenantID && e.WarehouseID == warehouseID && e.ProductID == productID {
			sum = sum.Add(e.QuantityDelta)
		}
	}
	return sum, nil
}

// memoryPORepo

type memoryPORepo MemoryStore

func (r *memoryPORepo) FindByID(_ context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	if po, ok := r.orders[id]; ok {
		return po, nil
	}
	return nil, shared.NewNotFoundError("PO_NOT_FOUND", fmt.Sprintf("Purchase order %s not found", id))
}

func (r *memoryPORepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	po, err := r.FindByID(ctx, id)
	if err != nil || po.TenantID != tenantID {
		return nil, shared.NewNotFoundError("PO_NOT_FOUND", fmt.Sprintf("Purchase order %s not found", id))
	}
	return po, nil
}

func (r *memoryPORepo) FindByIDsForTenant(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]procurement.PurchaseOrder, error) {
	orders := make([]procurement.PurchaseOrder, 0, len(ids))
	for _, id := range ids {
		if po, ok := r.orders[id]; ok && po.TenantID == tenantID {
			orders = append(orders, *clonePO(po))
		}
	}
	return orders, nil
}

func (r *memoryPORepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[procurement.PurchaseOrder], error) {
	orders := make([]procurement.PurchaseOrder, 0)
	for _, po := range r.orders {
		if po.TenantID == tenantID {
			orders = append(orders, *clonePO(po))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].PONo < orders[j].PONo })
	page := shared.NewPaginated(orders, int64(len(orders)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memoryPORepo) FindByOrderID(_ context.Context, tenantID, orderID uuid.UUID) ([]procurement.PurchaseOrder, error) {
	orders := make([]procurement.PurchaseOrder, 0)
	for _, po := range r.orders {
		if po.TenantID == tenantID && po.OrderID != nil && *po.OrderID == orderID {
			orders = append(orders, *clonePO(po))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].PONo < orders[j].PONo })
	return orders, nil
}

func (r *memoryPORepo) FindByStatus(_ context.Context, tenantID uuid.UUID, status procurement.POStatus) ([]procurement.PurchaseOrder, error) {
	orders := make([]procurement.PurchaseOrder, 0)
	for _, po := range r.orders {
		if po.TenantID == tenantID && po.Status == status {
			orders = append(orders, *clonePO(po))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].PONo < orders[j].PONo })
	return orders, nil
}

func (r *memoryPORepo) Save(_ context.Context, po *procurement.PurchaseOrder) error {
	r.orders[po.ID] = po
	return nil
}

func (r *memoryPORepo) SaveShipment(_ context.Context, shipment *procurement.Shipment) error {
	r.shipments = append(r.shipments, *shipment)
	return nil
}

func (r *memoryPORepo) DeleteDrafts(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		if po, ok := r.orders[id]; ok && po.TenantID == tenantID {
			delete(r.orders, id)
		}
	}
	return nil
}

// memoryTaskRepo

type memoryTaskRepo MemoryStore

func (r *memoryTaskRepo) FindByID(_ context.Context, id uuid.UUID) (*procurement.ProductionTask, error) {
	if task, ok := r.tasks[id]; ok {
		return task, nil
	}
	return nil, shared.NewNotFoundError("TASK_NOT_FOUND", fmt.Sprintf("Production task %s not found", id))
}

func (r *memoryTaskRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ProductionTask, error) {
	task, err := r.FindByID(ctx, id)
	if err != nil || task.TenantID != tenantID {
		return nil, shared.NewNotFoundError("TASK_NOT_FOUND", fmt.Sprintf("Production task %s not found", id))
	}
	return task, nil
}

func (r *memoryTaskRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[procurement.ProductionTask], error) {
	tasks := make([]procurement.ProductionTask, 0)
	for _, task := range r.tasks {
		if task.TenantID == tenantID {
			tasks = append(tasks, *cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskNo < tasks[j].TaskNo })
	page := shared.NewPaginated(tasks, int64(len(tasks)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memoryTaskRepo) FindByOrderID(_ context.Context, tenantID, orderID uuid.UUID) ([]procurement.ProductionTask, error) {
	tasks := make([]procurement.ProductionTask, 0)
	for _, task := range r.tasks {
		if task.TenantID == tenantID && task.OrderID != nil && *task.OrderID == orderID {
			tasks = append(tasks, *cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskNo < tasks[j].TaskNo })
	return tasks, nil
}

func (r *memoryTaskRepo) FindByStatus(_ context.Context, tenantID uuid.UUID, status procurement.TaskStatus) ([]procurement.ProductionTask, error) {
	tasks := make([]procurement.ProductionTask, 0)
	for _, task := range r.tasks {
		if task.TenantID == tenantID && task.Status == status {
			tasks = append(tasks, *cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskNo < tasks[j].TaskNo })
	return tasks, nil
}

func (r *memoryTaskRepo) Save(_ context.Context, task *procurement.ProductionTask) error {
	r.tasks[task.ID] = task
	return nil
}

// memoryRuleRepo

type memoryRuleRepo MemoryStore

func (r *memoryRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*routing.SplitRule, error) {
	if rule, ok := r.rules[id]; ok {
		return rule, nil
	}
	return nil, shared.NewNotFoundError("RULE_NOT_FOUND", fmt.Sprintf("Routing rule %s not found", id))
}

func (r *memoryRuleRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*routing.SplitRule, error) {
	rule, err := r.FindByID(ctx, id)
	if err != nil || rule.TenantID != tenantID {
		return nil, shared.NewNotFoundError("RULE_NOT_FOUND", fmt.Sprintf("Routing rule %s not found", id))
	}
	return rule, nil
}

func (r *memoryRuleRepo) FindActiveForTenant(_ context.Context, tenantID uuid.UUID) ([]routing.SplitRule, error) {
	rules := make([]routing.SplitRule, 0)
	for _, rule := range r.rules {
		if rule.TenantID == tenantID && rule.IsActive {
			rules = append(rules, *cloneRule(rule))
		}
	}
	routing.SortByPrecedence(rules)
	return rules, nil
}

func (r *memoryRuleRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[routing.SplitRule], error) {
	rules := make([]routing.SplitRule, 0)
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			rules = append(rules, *cloneRule(rule))
		}
	}
	routing.SortByPrecedence(rules)
	page := shared.NewPaginated(rules, int64(len(rules)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memoryRuleRepo) Save(_ context.Context, rule *routing.SplitRule) error {
	r.rules[rule.ID] = rule
	return nil
}

func (r *memoryRuleRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	if rule, ok := r.rules[id]; ok && rule.TenantID == tenantID {
		delete(r.rules, id)
		return nil
	}
	return shared.NewNotFoundError("RULE_NOT_FOUND", fmt.Sprintf("Routing rule %s not found", id))
}

// memorySupplierRepo

type memorySupplierRepo MemoryStore

func (r *memorySupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Supplier, error) {
	if s, ok := r.suppliers[id]; ok {
		return s, nil
	}
	return nil, shared.NewNotFoundError("SUPPLIER_NOT_FOUND", fmt.Sprintf("Supplier %s not found", id))
}

func (r *memorySupplierRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil || s.TenantID != tenantID {
		return nil, shared.NewNotFoundError("SUPPLIER_NOT_FOUND", fmt.Sprintf("Supplier %s not found", id))
	}
	return s, nil
}

func (r *memorySupplierRepo) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*partner.Supplier, error) {
	r.SupplierLookupCalls++
	result := make(map[uuid.UUID]*partner.Supplier)
	for _, id := range ids {
		if s, ok := r.suppliers[id]; ok && s.TenantID == tenantID {
			result[id] = s
		}
	}
	return result, nil
}

func (r *memorySupplierRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) ([]partner.Supplier, error) {
	suppliers := make([]partner.Supplier, 0)
	for _, s := range r.suppliers {
		if s.TenantID == tenantID {
			suppliers = append(suppliers, *s)
		}
	}
	sort.Slice(suppliers, func(i, j int) bool {
		return strings.Compare(suppliers[i].SupplierNo, suppliers[j].SupplierNo) < 0
	})
	return suppliers, nil
}

func (r *memorySupplierRepo) Save(_ context.Context, supplier *partner.Supplier) error {
	r.suppliers[supplier.ID] = supplier
	return nil
}

// memoryWarehouseRepo

type memoryWarehouseRepo MemoryStore

func (r *memoryWarehouseRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Warehouse, error) {
	if w, ok := r.warehouses[id]; ok {
		return w, nil
	}
	return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", fmt.Sprintf("Warehouse %s not found", id))
}

func (r *memoryWarehouseRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Warehouse, error) {
	w, err := r.FindByID(ctx, id)
	if err != nil || w.TenantID != tenantID {
		return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", fmt.Sprintf("Warehouse %s not found", id))
	}
	return w, nil
}

func (r *memoryWarehouseRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) ([]partner.Warehouse, error) {
	warehouses := make([]partner.Warehouse, 0)
	for _, w := range r.warehouses {
		if w.TenantID == tenantID {
			warehouses = append(warehouses, *w)
		}
	}
	sort.Slice(warehouses, func(i, j int) bool { return warehouses[i].Code < warehouses[j].Code })
	return warehouses, nil
}

func (r *memoryWarehouseRepo) Save(_ context.Context, warehouse *partner.Warehouse) error {
	r.warehouses[warehouse.ID] = warehouse
	return nil
}

// memoryOrderLineRepo

type memoryOrderLineRepo MemoryStore

func (r *memoryOrderLineRepo) LinesForOrder(_ context.Context, tenantID, orderID uuid.UUID) ([]ordering.OrderLine, error) {
	lines := make([]ordering.OrderLine, 0)
	for _, line := range r.orderLines[orderID] {
		if line.TenantID == tenantID || line.TenantID == uuid.Nil {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (r *memoryOrderLineRepo) Unassigned(_ context.Context, tenantID uuid.UUID, query ordering.UnassignedQuery) ([]ordering.OrderLine, error) {
	orderIDs := make([]uuid.UUID, 0, len(r.orderLines))
	for orderID := range r.orderLines {
		orderIDs = append(orderIDs, orderID)
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i].String() < orderIDs[j].String() })

	lines := make([]ordering.OrderLine, 0)
	for _, orderID := range orderIDs {
		for _, line := range r.orderLines[orderID] {
			if line.TenantID != tenantID && line.TenantID != uuid.Nil {
				continue
			}
			if query.Matches(&line) {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

func (r *memoryOrderLineRepo) FindUnassigned(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ordering.OrderLine, error) {
	byID := make(map[uuid.UUID]ordering.OrderLine)
	for _, orderLines := range r.orderLines {
		for _, line := range orderLines {
			if line.TenantID != tenantID && line.TenantID != uuid.Nil {
				continue
			}
			if !line.IsAssigned() {
				byID[line.ID] = line
			}
		}
	}

	lines := make([]ordering.OrderLine, 0, len(ids))
	for _, id := range ids {
		if line, ok := byID[id]; ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (r *memoryOrderLineRepo) Assign(_ context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID, poID uuid.UUID) error {
	wanted := make(map[uuid.UUID]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = struct{}{}
	}
	for _, orderLines := range r.orderLines {
		for i := range orderLines {
			if orderLines[i].TenantID != tenantID && orderLines[i].TenantID != uuid.Nil {
				continue
			}
			if _, ok := wanted[orderLines[i].ID]; ok {
				id := poID
				orderLines[i].POID = &id
			}
		}
	}
	return nil
}

// memoryAudit

type memoryAudit MemoryStore

func (r *memoryAudit) Record(_ context.Context, entry shared.AuditEntry) error {
	r.audits = append(r.audits, entry)
	return nil
}

// memoryNumbers

type memoryNumbers MemoryStore

func (r *memoryNumbers) Generate(_ context.Context, tenantID uuid.UUID, prefix string) (string, error) {
	key := tenantID.String() + "|" + prefix
	r.sequences[key]++
	return fmt.Sprintf("%s-%06d", prefix, r.sequences[key]), nil
}
