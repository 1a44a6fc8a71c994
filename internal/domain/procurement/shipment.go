package procurement

import (
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Shipment records how a purchase order was dispatched. An order can only be
// SHIPPED with at least one shipment row committed alongside it.
type Shipment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	POID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Carrier    string    `gorm:"type:varchar(100);not null"`
	TrackingNo string    `gorm:"type:varchar(100);not null"`
	ShippedAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Shipment) TableName() string {
	return "po_shipments"
}

// NewShipment creates a shipment record for a purchase order
func NewShipment(tenantID, poID uuid.UUID, carrier, trackingNo string) (*Shipment, error) {
	if carrier == "" {
		return nil, shared.NewValidationError("INVALID_CARRIER", "Carrier cannot be empty")
	}
	if trackingNo == "" {
		return nil, shared.NewValidationError("INVALID_TRACKING", "Tracking reference cannot be empty")
	}

	now := time.Now()
	return &Shipment{
		ID:         uuid.New(),
		TenantID:   tenantID,
		POID:       poID,
		Carrier:    carrier,
		TrackingNo: trackingNo,
		ShippedAt:  now,
		CreatedAt:  now,
	}, nil
}
