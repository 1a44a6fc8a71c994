package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/routing"
	"github.com/orderflow/backend/internal/domain/shared"
)

// GormTransactionScope implements uow.TransactionScope on GORM transactions.
// Every repository handed to the callback shares one transaction, so all
// mutations inside Execute commit or roll back together.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a transaction scope. lockTimeout bounds how
// long a FOR UPDATE inside the transaction may wait for a contended row;
// zero disables the bound.
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			// SET LOCAL resets at transaction end, so a timed-out lock
			// wait surfaces as SQLSTATE 55P03 instead of blocking forever.
			timeoutMs := s.lockTimeout.Milliseconds()
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMs)).Error; err != nil {
				return err
			}
		}
		return fn(&gormRepositories{tx: tx})
	})
	return translateDBError(err)
}

// gormRepositories provides access to all repositories within a transaction
type gormRepositories struct {
	tx *gorm.DB
}

// StockItems returns the stock item repository scoped to the current transaction
func (r *gormRepositories) StockItems() inventory.StockItemRepository {
	return NewGormStockItemRepository(r.tx)
}

// Ledger returns the ledger repository scoped to the current transaction
func (r *gormRepositories) Ledger() inventory.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

// PurchaseOrders returns the purchase order repository scoped to the current transaction
func (r *gormRepositories) PurchaseOrders() procurement.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

// ProductionTasks returns the production task repository scoped to the current transaction
func (r *gormRepositories) ProductionTasks() procurement.ProductionTaskRepository {
	return NewGormProductionTaskRepository(r.tx)
}

// SplitRules returns the routing rule repository scoped to the current transaction
func (r *gormRepositories) SplitRules() routing.SplitRuleRepository {
	return NewGormSplitRuleRepository(r.tx)
}

// Suppliers returns the supplier repository scoped to the current transaction
func (r *gormRepositories) Suppliers() partner.SupplierRepository {
	return NewGormSupplierRepository(r.tx)
}

// Warehouses returns the warehouse repository scoped to the current transaction
func (r *gormRepositories) Warehouses() partner.WarehouseRepository {
	return NewGormWarehouseRepository(r.tx)
}

// OrderLines returns the order line repository scoped to the current transaction
func (r *gormRepositories) OrderLines() ordering.OrderLineRepository {
	return NewGormOrderLineRepository(r.tx)
}

// Audit returns the audit logger scoped to the current transaction
func (r *gormRepositories) Audit() shared.AuditLogger {
	return NewGormAuditLogger(r.tx)
}

// DocumentNumbers returns the document number generator scoped to the current transaction
func (r *gormRepositories) DocumentNumbers() procurement.DocumentNumberGenerator {
	return NewGormDocumentNumberGenerator(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ uow.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements Repositories
var _ uow.Repositories = (*gormRepositories)(nil)
