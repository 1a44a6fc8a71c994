package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderflow/backend/internal/domain/ordering"
)

// orderLineRow is the persistence shape of a confirmed sales order line. The
// ordering context exposes only the read model; this row is written by the
// order intake flow and read by the routing engine. PO assignment is the one
// column the routing side writes back.
type orderLineRow struct {
	ID                uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID         `gorm:"type:uuid;not null;index:idx_order_line_tenant_order,priority:2"`
	TenantID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_order_line_tenant_order,priority:1"`
	ProductID         uuid.UUID         `gorm:"type:uuid;not null"`
	SKU               string            `gorm:"type:varchar(100);not null"`
	ProductName       string            `gorm:"type:varchar(200);not null"`
	ProductType       string            `gorm:"type:varchar(20);not null"`
	Category          string            `gorm:"type:varchar(100)"`
	Quantity          decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	DefaultSupplierID *uuid.UUID        `gorm:"type:uuid"`
	POID              *uuid.UUID        `gorm:"column:po_id;type:uuid;index"`
	Attributes        map[string]string `gorm:"serializer:json"`
	CreatedAt         time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (orderLineRow) TableName() string {
	return "sales_order_lines"
}

func (row *orderLineRow) toDomain() ordering.OrderLine {
	return ordering.OrderLine{
		ID:                row.ID,
		OrderID:           row.OrderID,
		TenantID:          row.TenantID,
		ProductID:         row.ProductID,
		SKU:               row.SKU,
		ProductName:       row.ProductName,
		ProductType:       ordering.ProductType(row.ProductType),
		Category:          row.Category,
		Quantity:          row.Quantity,
		UnitPrice:         row.UnitPrice,
		DefaultSupplierID: row.DefaultSupplierID,
		POID:              row.POID,
		Attributes:        row.Attributes,
	}
}

// GormOrderLineRepository implements OrderLineRepository using GORM
type GormOrderLineRepository struct {
	db *gorm.DB
}

// NewGormOrderLineRepository creates a new GormOrderLineRepository
func NewGormOrderLineRepository(db *gorm.DB) *GormOrderLineRepository {
	return &GormOrderLineRepository{db: db}
}

// LinesForOrder loads the routable lines of a confirmed order in insertion order
func (r *GormOrderLineRepository) LinesForOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]ordering.OrderLine, error) {
	var rows []orderLineRow
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateDBError(err)
	}
	return rowsToDomain(rows), nil
}

// Unassigned lists lines no purchase order has claimed, filtered by the query
func (r *GormOrderLineRepository) Unassigned(ctx context.Context, tenantID uuid.UUID, query ordering.UnassignedQuery) ([]ordering.OrderLine, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND po_id IS NULL", tenantID)
	if query.ProductType != nil {
		q = q.Where("product_type = ?", string(*query.ProductType))
	}
	if query.SupplierID != nil {
		q = q.Where("default_supplier_id = ?", *query.SupplierID)
	}
	if query.OrderID != nil {
		q = q.Where("order_id = ?", *query.OrderID)
	}

	var rows []orderLineRow
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translateDBError(err)
	}
	return rowsToDomain(rows), nil
}

// FindUnassigned loads the still-unclaimed subset of the given lines,
// preserving the requested order
func (r *GormOrderLineRepository) FindUnassigned(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ordering.OrderLine, error) {
	if len(ids) == 0 {
		return []ordering.OrderLine{}, nil
	}

	var rows []orderLineRow
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND po_id IS NULL AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, translateDBError(err)
	}

	byID := make(map[uuid.UUID]ordering.OrderLine, len(rows))
	for i := range rows {
		byID[rows[i].ID] = rows[i].toDomain()
	}
	lines := make([]ordering.OrderLine, 0, len(rows))
	for _, id := range ids {
		if line, ok := byID[id]; ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Assign stamps the purchase order onto the given lines
func (r *GormOrderLineRepository) Assign(ctx context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID, poID uuid.UUID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&orderLineRow{}).
		Where("tenant_id = ? AND id IN ?", tenantID, lineIDs).
		Update("po_id", poID).Error; err != nil {
		return translateDBError(err)
	}
	return nil
}

func rowsToDomain(rows []orderLineRow) []ordering.OrderLine {
	lines := make([]ordering.OrderLine, 0, len(rows))
	for i := range rows {
		lines = append(lines, rows[i].toDomain())
	}
	return lines
}

// Ensure GormOrderLineRepository implements OrderLineRepository
var _ ordering.OrderLineRepository = (*GormOrderLineRepository)(nil)
