package handler

import (
	procurementapp "github.com/orderflow/backend/internal/application/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProcurementHandler handles purchase order lifecycle and goods-in endpoints
type ProcurementHandler struct {
	BaseHandler
	orders    *procurementapp.POService
	receiving *procurementapp.ReceivingService
}

// NewProcurementHandler creates a new ProcurementHandler
func NewProcurementHandler(orders *procurementapp.POService, receiving *procurementapp.ReceivingService) *ProcurementHandler {
	return &ProcurementHandler{
		orders:    orders,
		receiving: receiving,
	}
}

// RegisterRoutes registers all procurement endpoints
func (h *ProcurementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/procurement/purchase-orders")
	{
		orders.GET("", h.List)
		orders.POST("", h.Create)
		orders.POST("/batch-delete", h.BatchDeleteDrafts)
		orders.GET("/:id", h.GetByID)
		orders.PUT("/:id/status", h.UpdateStatus)
		orders.POST("/:id/submit", h.Submit)
		orders.POST("/:id/confirm-quote", h.ConfirmQuote)
		orders.POST("/:id/confirm-payment", h.ConfirmPayment)
		orders.POST("/:id/confirm-production", h.ConfirmProduction)
		orders.POST("/:id/ship", h.Ship)
		orders.POST("/:id/deliver", h.MarkDelivered)
		orders.POST("/:id/cancel", h.Cancel)
	}

	rg.POST("/procurement/receipts", h.ConfirmReceipt)
	rg.GET("/procurement/orders/:order_id/tasks", h.ListTasksForOrder)
}

// Create creates a purchase order outside of routing
func (h *ProcurementHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input procurementapp.CreatePOInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orders.CreatePurchaseOrder(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, order)
}

// GetByID retrieves a purchase order with its items and shipments
func (h *ProcurementHandler) GetByID(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	poID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orders.GetPurchaseOrder(c.Request.Context(), actor, poID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// List pages through purchase orders with optional filtering
func (h *ProcurementHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseListFilter(c)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if poType := c.Query("type"); poType != "" {
		filter.Filters["type"] = poType
	}
	if supplierID := c.Query("supplier_id"); supplierID != "" {
		id, err := uuid.Parse(supplierID)
		if err != nil {
			h.BadRequest(c, "Invalid supplier ID format")
			return
		}
		filter.Filters["supplier_id"] = id
	}
	if orderID := c.Query("order_id"); orderID != "" {
		id, err := uuid.Parse(orderID)
		if err != nil {
			h.BadRequest(c, "Invalid order ID format")
			return
		}
		filter.Filters["order_id"] = id
	}

	page, err := h.orders.ListPurchaseOrders(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// transition runs a body-less lifecycle action against the order named by
// the id path parameter
func (h *ProcurementHandler) transition(c *gin.Context, fn func(actor shared.Actor, poID uuid.UUID) (*procurementapp.PODTO, error)) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	poID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := fn(actor, poID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Submit moves a draft order to PENDING_CONFIRMATION
func (h *ProcurementHandler) Submit(c *gin.Context) {
	h.transition(c, func(actor shared.Actor, poID uuid.UUID) (*procurementapp.PODTO, error) {
		return h.orders.Submit(c.Request.Context(), actor, poID)
	})
}

// ConfirmQuote fixes the supplier's quoted total and moves the order to
// PENDING_PAYMENT
func (h *ProcurementHandler) ConfirmQuote(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	poID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var input procurementapp.ConfirmQuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orders.ConfirmQuote(c.Request.Context(), actor, poID, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// ConfirmPayment records payment and moves the order to IN_PRODUCTION
func (h *ProcurementHandler) ConfirmPayment(c *gin.Context) {
	h.transition(c, func(actor shared.Actor, poID uuid.UUID) (*procurementapp.PODTO, error) {
		return h.orders.ConfirmPayment(c.Request.Context(), actor, poID)
	})
}

// ConfirmProduction marks production finished, moving the order to READY
func (h *ProcurementHandler) ConfirmProduction(c *gin.Context) {
	h.transition(c, func(actor shared.Actor, poID uuid.UUID) (*procurementapp.PODTO, error) {
		return h.orders.ConfirmProduction(c.Request.Context(), actor, poID)
	})
}

// Ship records the shipment and moves the order to SHIPPED
func (h *ProcurementHandler) Ship(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	poID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var input procurementapp.ShipInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orders.Ship(c.Request.Context(), actor, poID, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// MarkDelivered records that the shipment arrived
func (h *ProcurementHandler) MarkDelivered(c *gin.Context) {
	h.transition(c, func(actor shared.Actor, poID uuid.UUID) (*procurementapp.PODTO, error) {
		return h.orders.MarkDelivered(c.Request.Context(), actor, poID)
	})
}

// Cancel cancels a non-terminal order with a reason
func (h *ProcurementHandler) Cancel(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	poID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var input procurementapp.CancelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), actor, poID, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// UpdateStatus requests a plain lifecycle transition
func (h *ProcurementHandler) UpdateStatus(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	poID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var input procurementapp.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), actor, poID, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// BatchDeleteDrafts deletes draft orders all-or-nothing
func (h *ProcurementHandler) BatchDeleteDrafts(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input procurementapp.BatchDeleteDraftsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.orders.BatchDeleteDrafts(c.Request.Context(), actor, input); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ConfirmReceipt posts received goods against an order, increasing stock and
// deriving the order's aggregate status
func (h *ProcurementHandler) ConfirmReceipt(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input procurementapp.ConfirmReceiptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.receiving.ConfirmReceipt(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListTasksForOrder lists the production tasks created for a sales order
func (h *ProcurementHandler) ListTasksForOrder(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	orderID, err := parseUUIDParam(c, "order_id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	tasks, err := h.orders.ListTasksForOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tasks)
}
