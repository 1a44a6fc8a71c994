package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/routing"
)

// AutoMigrate creates or updates the schema for every persisted model.
// Ordering matters: referenced tables before referencing ones.
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&partner.Supplier{},
		&partner.Warehouse{},
		&orderLineRow{},
		&routing.SplitRule{},
		&procurement.PurchaseOrder{},
		&procurement.POItem{},
		&procurement.Shipment{},
		&procurement.ProductionTask{},
		&procurement.TaskItem{},
		&inventory.StockItem{},
		&inventory.LedgerEntry{},
		&DocumentSequenceRow{},
		&AuditLogRow{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
