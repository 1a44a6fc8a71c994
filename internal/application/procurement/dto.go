package procurement

import (
	"time"

	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePOItemInput is one line of a manual purchase order
type CreatePOItemInput struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required,max=200"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreatePOInput is the request to create a purchase order outside routing,
// typically a STOCK replenishment order
type CreatePOInput struct {
	SupplierID uuid.UUID           `json:"supplier_id" binding:"required"`
	Type       string              `json:"type" binding:"required,oneof=FINISHED FABRIC STOCK"`
	Items      []CreatePOItemInput `json:"items" binding:"required,min=1,dive"`
}

// ShipInput carries the shipment details required to mark an order SHIPPED
type ShipInput struct {
	Carrier    string `json:"carrier" binding:"required,max=100"`
	TrackingNo string `json:"tracking_no" binding:"required,max=100"`
}

// ConfirmQuoteInput fixes the supplier's quoted total
type ConfirmQuoteInput struct {
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
}

// UpdateStatusInput requests a plain status transition
type UpdateStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// CancelInput carries the reason for cancelling an order
type CancelInput struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// BatchDeleteDraftsInput names the draft orders to delete
type BatchDeleteDraftsInput struct {
	POIDs []uuid.UUID `json:"po_ids" binding:"required,min=1"`
}

// ReceiptLineInput is one line of a goods-in confirmation
type ReceiptLineInput struct {
	POItemID  uuid.UUID       `json:"po_item_id" binding:"required"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// ConfirmReceiptInput is the request to post received goods against an order
type ConfirmReceiptInput struct {
	POID         uuid.UUID          `json:"po_id" binding:"required"`
	WarehouseID  uuid.UUID          `json:"warehouse_id" binding:"required"`
	ReceivedDate time.Time          `json:"received_date"`
	Items        []ReceiptLineInput `json:"items" binding:"required,min=1,dive"`
}

// ReceiptResult reports the order state after a receipt was posted
type ReceiptResult struct {
	POID             uuid.UUID `json:"po_id"`
	Status           string    `json:"status"`
	AllFullyReceived bool      `json:"all_fully_received"`
}

// POItemDTO is the outward representation of an order line
type POItemDTO struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// ShipmentDTO is the outward representation of a shipment record
type ShipmentDTO struct {
	ID         uuid.UUID `json:"id"`
	Carrier    string    `json:"carrier"`
	TrackingNo string    `json:"tracking_no"`
	ShippedAt  time.Time `json:"shipped_at"`
}

// PODTO is the outward representation of a purchase order
type PODTO struct {
	ID            uuid.UUID       `json:"id"`
	PONo          string          `json:"po_no"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	ShippedAt     *time.Time      `json:"shipped_at,omitempty"`
	Items         []POItemDTO     `json:"items"`
	Shipments     []ShipmentDTO   `json:"shipments,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TaskDTO is the outward representation of a production task
type TaskDTO struct {
	ID            uuid.UUID  `json:"id"`
	TaskNo        string     `json:"task_no"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	ProcessorID   uuid.UUID  `json:"processor_id"`
	ProcessorName string     `json:"processor_name"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toPODTO(po *procurement.PurchaseOrder) *PODTO {
	items := make([]POItemDTO, 0, len(po.Items))
	for _, item := range po.Items {
		items = append(items, POItemDTO{
			ID:               item.ID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			ReceivedQuantity: item.ReceivedQuantity,
			UnitPrice:        item.UnitPrice,
		})
	}
	shipments := make([]ShipmentDTO, 0, len(po.Shipments))
	for _, sh := range po.Shipments {
		shipments = append(shipments, ShipmentDTO{
			ID:         sh.ID,
			Carrier:    sh.Carrier,
			TrackingNo: sh.TrackingNo,
			ShippedAt:  sh.ShippedAt,
		})
	}
	return &PODTO{
		ID:            po.ID,
		PONo:          po.PONo,
		SupplierID:    po.SupplierID,
		SupplierName:  po.SupplierName,
		OrderID:       po.OrderID,
		Type:          string(po.Type),
		Status:        string(po.Status),
		PaymentStatus: string(po.PaymentStatus),
		TotalAmount:   po.TotalAmount,
		CancelReason:  po.CancelReason,
		ShippedAt:     po.ShippedAt,
		Items:         items,
		Shipments:     shipments,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
	}
}

func toTaskDTO(task *procurement.ProductionTask) *TaskDTO {
	return &TaskDTO{
		ID:            task.ID,
		TaskNo:        task.TaskNo,
		OrderID:       task.OrderID,
		ProcessorID:   task.ProcessorID,
		ProcessorName: task.ProcessorName,
		Status:        string(task.Status),
		CreatedAt:     task.CreatedAt,
	}
}
