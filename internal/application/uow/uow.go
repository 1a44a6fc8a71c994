package uow

import (
	"context"

	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/orderflow/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the repositories. When a
// function is executed within a scope, all repository operations are part of
// the same database transaction and commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction,
// including the audit logger and the document number generator so an audit
// record or minted number never outlives a rolled-back mutation.
type Repositories interface {
	StockItems() inventory.StockItemRepository
	Ledger() inventory.LedgerRepository
	PurchaseOrders() procurement.PurchaseOrderRepository
	ProductionTasks() procurement.ProductionTaskRepository
	SplitRules() routing.SplitRuleRepository
	Suppliers() partner.SupplierRepository
	Warehouses() partner.WarehouseRepository
	OrderLines() ordering.OrderLineRepository
	Audit() shared.AuditLogger
	DocumentNumbers() procurement.DocumentNumberGenerator
}

// NoOpTransactionScope runs the function without a real transaction. Useful
// for tests built on in-memory repositories.
type NoOpTransactionScope struct {
	Repos Repositories
}

// Execute runs the function against the configured repositories directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.Repos)
}
