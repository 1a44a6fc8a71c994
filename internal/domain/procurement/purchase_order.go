package procurement

import (
	"fmt"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// POStatus represents the lifecycle status of a purchase order
type POStatus string

const (
	POStatusDraft               POStatus = "DRAFT"
	POStatusPendingConfirmation POStatus = "PENDING_CONFIRMATION"
	POStatusPendingPayment      POStatus = "PENDING_PAYMENT"
	POStatusInProduction        POStatus = "IN_PRODUCTION"
	POStatusReady               POStatus = "READY"
	POStatusShipped             POStatus = "SHIPPED"
	POStatusDelivered           POStatus = "DELIVERED"
	POStatusPartiallyReceived   POStatus = "PARTIALLY_RECEIVED"
	POStatusCompleted           POStatus = "COMPLETED"
	POStatusCancelled           POStatus = "CANCELLED"
)

// IsValid checks if the status is a valid POStatus
func (s POStatus) IsValid() bool {
	switch s {
	case POStatusDraft, POStatusPendingConfirmation, POStatusPendingPayment,
		POStatusInProduction, POStatusReady, POStatusShipped, POStatusDelivered,
		POStatusPartiallyReceived, POStatusCompleted, POStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of POStatus
func (s POStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s POStatus) IsTerminal() bool {
	return s == POStatusCompleted || s == POStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// The transition table is fixed; a full receipt may close a SHIPPED order in
// one step, so SHIPPED admits COMPLETED directly.
func (s POStatus) CanTransitionTo(target POStatus) bool {
	if target == POStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case POStatusDraft:
		return target == POStatusPendingConfirmation
	case POStatusPendingConfirmation:
		return target == POStatusPendingPayment
	case POStatusPendingPayment:
		return target == POStatusInProduction
	case POStatusInProduction:
		return target == POStatusReady
	case POStatusReady:
		return target == POStatusShipped
	case POStatusShipped:
		return target == POStatusDelivered || target == POStatusPartiallyReceived || target == POStatusCompleted
	case POStatusDelivered:
		return target == POStatusCompleted
	case POStatusPartiallyReceived:
		return target == POStatusPartiallyReceived || target == POStatusCompleted
	}
	return false
}

// CanReceive returns true if receiving goods is allowed in this status
func (s POStatus) CanReceive() bool {
	return s == POStatusShipped || s == POStatusPartiallyReceived
}

// POType classifies what the order procures
type POType string

const (
	// POTypeFinished procures catalogued finished goods
	POTypeFinished POType = "FINISHED"
	// POTypeFabric procures raw fabric for custom items
	POTypeFabric POType = "FABRIC"
	// POTypeStock replenishes warehouse stock outside any sales order
	POTypeStock POType = "STOCK"
)

// IsValid checks if the type is a valid POType
func (t POType) IsValid() bool {
	return t == POTypeFinished || t == POTypeFabric || t == POTypeStock
}

// PaymentStatus represents the payment state of a purchase order
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// POItem represents a line item in a purchase order
type POItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	POID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (POItem) TableName() string {
	return "purchase_order_items"
}

// NewPOItem creates a new purchase order line item
func NewPOItem(poID, productID uuid.UUID, productName string, quantity, unitPrice decimal.Decimal) (*POItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &POItem{
		ID:               uuid.New(),
		POID:             poID,
		ProductID:        productID,
		ProductName:      productName,
		Quantity:         quantity,
		ReceivedQuantity: decimal.Zero,
		UnitPrice:        unitPrice,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Amount returns the line total
func (i *POItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// RemainingQuantity returns the quantity still to be received
func (i *POItem) RemainingQuantity() decimal.Decimal {
	return i.Quantity.Sub(i.ReceivedQuantity)
}

// IsFullyReceived returns true if all ordered quantity has been received
func (i *POItem) IsFullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.Quantity)
}

// AddReceivedQuantity adds to the received quantity. The cumulative received
// quantity may never exceed the ordered quantity; the excess is rejected, not
// clamped.
func (i *POItem) AddReceivedQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY",
			fmt.Sprintf("Receive quantity for item %s must be positive", i.ID))
	}

	newReceived := i.ReceivedQuantity.Add(quantity)
	if newReceived.GreaterThan(i.Quantity) {
		return shared.NewValidationError("QUANTITY_EXCEEDED",
			fmt.Sprintf("Item %s: cannot receive %s, only %s remaining",
				i.ID, quantity.String(), i.RemainingQuantity().String()))
	}

	i.ReceivedQuantity = newReceived
	i.UpdatedAt = time.Now()

	return nil
}

// ReceiptLine is a single line of a goods-in confirmation
type ReceiptLine struct {
	POItemID  uuid.UUID       `json:"po_item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ReceivedLineInfo describes one applied receipt line, in submission order
type ReceivedLineInfo struct {
	POItemID    uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// PurchaseOrder is the aggregate root for a supplier order. Status only moves
// along the fixed transition table; once the order leaves DRAFT it is never
// deleted.
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	PONo          string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_po_tenant_number,priority:2"`
	SupplierID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierName  string          `gorm:"type:varchar(200);not null"`
	OrderID       *uuid.UUID      `gorm:"type:uuid;index"`
	Type          POType          `gorm:"type:varchar(20);not null"`
	Status        POStatus        `gorm:"type:varchar(30);not null;default:'DRAFT'"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID'"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippedAt     *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CancelReason  string     `gorm:"type:varchar(500)"`
	Items         []POItem   `gorm:"foreignKey:POID;references:ID"`
	Shipments     []Shipment `gorm:"foreignKey:POID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new purchase order in DRAFT status
func NewPurchaseOrder(tenantID uuid.UUID, poNo string, supplierID uuid.UUID, supplierName string, poType POType, orderID *uuid.UUID) (*PurchaseOrder, error) {
	if poNo == "" {
		return nil, shared.NewValidationError("INVALID_PO_NUMBER", "PO number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if supplierName == "" {
		return nil, shared.NewValidationError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if !poType.IsValid() {
		return nil, shared.NewValidationError("INVALID_PO_TYPE", fmt.Sprintf("Unknown PO type: %s", poType))
	}

	return &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PONo:                poNo,
		SupplierID:          supplierID,
		SupplierName:        supplierName,
		OrderID:             orderID,
		Type:                poType,
		Status:              POStatusDraft,
		PaymentStatus:       PaymentStatusUnpaid,
		TotalAmount:         decimal.Zero,
		Items:               make([]POItem, 0),
	}, nil
}

// AddItem adds a new line item. Only allowed in DRAFT status.
func (o *PurchaseOrder) AddItem(productID uuid.UUID, productName string, quantity, unitPrice decimal.Decimal) (*POItem, error) {
	if o.Status != POStatusDraft {
		return nil, shared.NewValidationError("INVALID_STATE", "Cannot add items to a non-draft order")
	}

	for _, item := range o.Items {
		if item.ProductID == productID {
			return nil, shared.NewValidationError("DUPLICATE_PRODUCT", "Product already exists in order")
		}
	}

	item, err := NewPOItem(o.ID, productID, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotal()
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return item, nil
}

// TransitionTo moves the order to the target status. Illegal edges are
// rejected naming both endpoints. Shipping must go through Ship so that a
// shipment record always accompanies the transition.
func (o *PurchaseOrder) TransitionTo(target POStatus) error {
	if !target.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown status: %s", target))
	}
	if target == POStatusShipped {
		return shared.NewValidationError("SHIPMENT_REQUIRED",
			"Transition to SHIPPED requires a shipment record")
	}
	return o.transition(target)
}

func (o *PurchaseOrder) transition(target POStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewValidationError("INVALID_TRANSITION",
			fmt.Sprintf("Order %s: illegal transition %s -> %s", o.ID, o.Status, target))
	}

	now := time.Now()
	o.Status = target
	switch target {
	case POStatusCompleted:
		o.CompletedAt = &now
	case POStatusCancelled:
		o.CancelledAt = &now
	}
	o.UpdatedAt = now
	o.IncrementVersion()

	return nil
}

// Submit moves a draft order into the confirmation flow
func (o *PurchaseOrder) Submit() error {
	if len(o.Items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "Cannot submit order without items")
	}
	return o.transition(POStatusPendingConfirmation)
}

// ConfirmQuote accepts the supplier's quote and fixes the total amount
func (o *PurchaseOrder) ConfirmQuote(totalAmount decimal.Decimal) error {
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_AMOUNT", "Quoted amount must be positive")
	}
	if err := o.transition(POStatusPendingPayment); err != nil {
		return err
	}
	o.TotalAmount = totalAmount
	return nil
}

// ConfirmPayment records payment and releases the order into production
func (o *PurchaseOrder) ConfirmPayment() error {
	if err := o.transition(POStatusInProduction); err != nil {
		return err
	}
	o.PaymentStatus = PaymentStatusPaid
	return nil
}

// ConfirmProduction marks production finished and the order ready to ship
func (o *PurchaseOrder) ConfirmProduction() error {
	return o.transition(POStatusReady)
}

// Ship transitions the order to SHIPPED and returns the shipment record that
// must be persisted in the same transaction
func (o *PurchaseOrder) Ship(carrier, trackingNo string) (*Shipment, error) {
	shipment, err := NewShipment(o.TenantID, o.ID, carrier, trackingNo)
	if err != nil {
		return nil, err
	}
	if err := o.transition(POStatusShipped); err != nil {
		return nil, err
	}

	o.ShippedAt = &shipment.ShippedAt
	o.Shipments = append(o.Shipments, *shipment)

	return shipment, nil
}

// MarkDelivered records carrier-confirmed delivery before line-level receipt
func (o *PurchaseOrder) MarkDelivered() error {
	return o.transition(POStatusDelivered)
}

// Receive applies receipt lines in the submitted order. A single line
// exceeding its remaining quantity fails the whole call; no lines are applied
// partially. The aggregate status becomes COMPLETED when every item is fully
// received, otherwise PARTIALLY_RECEIVED.
func (o *PurchaseOrder) Receive(lines []ReceiptLine) ([]ReceivedLineInfo, error) {
	if !o.Status.CanReceive() {
		return nil, shared.NewValidationError("INVALID_STATE",
			fmt.Sprintf("Order %s: cannot receive goods in %s status", o.ID, o.Status))
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("NO_ITEMS", "Receipt lines cannot be empty")
	}

	applied := make([]ReceivedLineInfo, 0, len(lines))
	for _, line := range lines {
		item := o.findItem(line.POItemID)
		if item == nil {
			return nil, shared.NewValidationError("ITEM_NOT_FOUND",
				fmt.Sprintf("Item %s not found in order %s", line.POItemID, o.ID))
		}
		if line.ProductID != uuid.Nil && item.ProductID != line.ProductID {
			return nil, shared.NewValidationError("PRODUCT_MISMATCH",
				fmt.Sprintf("Item %s does not carry product %s", line.POItemID, line.ProductID))
		}
		if err := item.AddReceivedQuantity(line.Quantity); err != nil {
			return nil, err
		}

		applied = append(applied, ReceivedLineInfo{
			POItemID:    item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	target := POStatusPartiallyReceived
	if o.AllFullyReceived() {
		target = POStatusCompleted
	}
	if err := o.transition(target); err != nil {
		return nil, err
	}

	return applied, nil
}

// Cancel cancels the order from any non-terminal status
func (o *PurchaseOrder) Cancel(reason string) error {
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}
	if err := o.transition(POStatusCancelled); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// AllFullyReceived checks if every item has been fully received
func (o *PurchaseOrder) AllFullyReceived() bool {
	for _, item := range o.Items {
		if !item.IsFullyReceived() {
			return false
		}
	}
	return len(o.Items) > 0
}

// IsDraft returns true while the order is still a deletable draft
func (o *PurchaseOrder) IsDraft() bool {
	return o.Status == POStatusDraft
}

func (o *PurchaseOrder) findItem(itemID uuid.UUID) *POItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

func (o *PurchaseOrder) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount())
	}
	o.TotalAmount = total
}
