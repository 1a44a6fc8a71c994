package ordering

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType classifies what a line item is made from
type ProductType string

const (
	// ProductTypeFinished is a catalogued product sourced as-is
	ProductTypeFinished ProductType = "FINISHED"
	// ProductTypeCustom is a made-to-order product that needs fabric sourcing or processing
	ProductTypeCustom ProductType = "CUSTOM"
)

// IsValid checks whether the product type is a known value
func (t ProductType) IsValid() bool {
	return t == ProductTypeFinished || t == ProductTypeCustom
}

// OrderLine is a read model of a confirmed sales order line, enriched with the
// product attributes the routing engine evaluates
type OrderLine struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	TenantID          uuid.UUID
	ProductID         uuid.UUID
	SKU               string
	ProductName       string
	ProductType       ProductType
	Category          string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	DefaultSupplierID *uuid.UUID
	POID              *uuid.UUID
	Attributes        map[string]string
}

// IsAssigned reports whether the line has already been routed into a
// purchase order
func (l *OrderLine) IsAssigned() bool {
	return l.POID != nil
}

// Attribute returns a named attribute of the line for rule evaluation.
// Built-in fields are addressable by well-known names alongside the
// free-form attribute map.
func (l *OrderLine) Attribute(field string) (string, bool) {
	switch field {
	case "sku":
		return l.SKU, true
	case "productName":
		return l.ProductName, true
	case "productType":
		return string(l.ProductType), true
	case "category":
		return l.Category, true
	}
	v, ok := l.Attributes[field]
	return v, ok
}

// UnassignedQuery filters the pool of lines not yet routed to a document.
// Nil fields match everything.
type UnassignedQuery struct {
	ProductType *ProductType
	SupplierID  *uuid.UUID
	OrderID     *uuid.UUID
}

// Matches checks a line against the query. Only unassigned lines qualify;
// the supplier filter compares against the line's default supplier.
func (q UnassignedQuery) Matches(line *OrderLine) bool {
	if line.IsAssigned() {
		return false
	}
	if q.ProductType != nil && line.ProductType != *q.ProductType {
		return false
	}
	if q.SupplierID != nil && (line.DefaultSupplierID == nil || *line.DefaultSupplierID != *q.SupplierID) {
		return false
	}
	if q.OrderID != nil && line.OrderID != *q.OrderID {
		return false
	}
	return true
}

// OrderLineRepository loads routable order lines and records which purchase
// order picked them up
type OrderLineRepository interface {
	LinesForOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]OrderLine, error)

	// Unassigned lists lines of the tenant that no purchase order has
	// claimed yet, filtered by the query
	Unassigned(ctx context.Context, tenantID uuid.UUID, query UnassignedQuery) ([]OrderLine, error)

	// FindUnassigned loads the subset of the given lines that is still
	// unclaimed, preserving the requested order. Already-assigned and
	// unknown IDs are silently dropped.
	FindUnassigned(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]OrderLine, error)

	// Assign stamps the purchase order onto the given lines
	Assign(ctx context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID, poID uuid.UUID) error
}
