package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// Sort fields are interpolated into ORDER BY, so only whitelisted column
// names ever reach the query.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"po_no":         true,
	"supplier_id":   true,
	"supplier_name": true,
	"type":          true,
	"status":        true,
	"total_amount":  true,
	"shipped_at":    true,
	"completed_at":  true,
}

// ProductionTaskSortFields contains allowed sort fields for production tasks
var ProductionTaskSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"task_no":        true,
	"processor_id":   true,
	"processor_name": true,
	"status":         true,
}

// SplitRuleSortFields contains allowed sort fields for routing rules
var SplitRuleSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"priority":   true,
	"is_active":  true,
}

// SupplierSortFields contains allowed sort fields for suppliers
var SupplierSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"supplier_no": true,
	"name":        true,
	"capability":  true,
	"is_active":   true,
}

// WarehouseSortFields contains allowed sort fields for warehouses
var WarehouseSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"is_active":  true,
}

// StockItemSortFields contains allowed sort fields for stock rows
var StockItemSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"warehouse_id": true,
	"product_id":   true,
	"quantity":     true,
	"min_stock":    true,
}
