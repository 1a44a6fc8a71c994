package handler

import (
	"strconv"
	"time"

	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyHeaderKey carries the caller's dedup token for stock mutations
const IdempotencyHeaderKey = "X-Idempotency-Key"

// InventoryHandler handles stock query and mutation endpoints
type InventoryHandler struct {
	BaseHandler
	ledger *inventoryapp.LedgerService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *inventoryapp.LedgerService) *InventoryHandler {
	return &InventoryHandler{
		ledger: ledger,
	}
}

// RegisterRoutes registers all inventory endpoints
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.GET("/stock", h.ListStock)
		inv.GET("/alerts", h.Alerts)
		inv.GET("/ledger", h.ListLedger)
		inv.POST("/adjustments", h.Adjust)
		inv.POST("/transfers", h.Transfer)
		inv.PUT("/min-stock", h.SetMinStock)
	}
}

// ListStock pages through stock positions
func (h *InventoryHandler) ListStock(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseListFilter(c)
	if warehouseID := c.Query("warehouse_id"); warehouseID != "" {
		id, err := uuid.Parse(warehouseID)
		if err != nil {
			h.BadRequest(c, "Invalid warehouse ID format")
			return
		}
		filter.Filters["warehouse_id"] = id
	}
	if productID := c.Query("product_id"); productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		filter.Filters["product_id"] = id
	}
	if belowMin := c.Query("below_min"); belowMin != "" {
		filter.Filters["below_min"] = belowMin == "true"
	}

	page, err := h.ledger.ListStock(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Alerts lists every warehouse-product pair at or below its threshold
func (h *InventoryHandler) Alerts(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	alerts, err := h.ledger.CheckAlerts(c.Request.Context(), actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alerts)
}

// ListLedger pages through the stock mutation log
func (h *InventoryHandler) ListLedger(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, err := parseLedgerFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.ledger.ListLedger(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Adjust corrects the stock of one warehouse-product pair
func (h *InventoryHandler) Adjust(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input inventoryapp.AdjustInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if input.IdempotencyToken == "" {
		input.IdempotencyToken = c.GetHeader(IdempotencyHeaderKey)
	}

	result, err := h.ledger.Adjust(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Transfer moves stock between two warehouses atomically
func (h *InventoryHandler) Transfer(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input inventoryapp.TransferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if input.IdempotencyToken == "" {
		input.IdempotencyToken = c.GetHeader(IdempotencyHeaderKey)
	}

	result, err := h.ledger.Transfer(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// SetMinStock sets the low-stock threshold of one pair
func (h *InventoryHandler) SetMinStock(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input inventoryapp.SetMinStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.ledger.SetMinStock(c.Request.Context(), actor, input); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func parseLedgerFilter(c *gin.Context) (inventory.LedgerFilter, error) {
	filter := inventory.LedgerFilter{Page: 1, PageSize: 20}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 && size <= 100 {
		filter.PageSize = size
	}
	if warehouseID := c.Query("warehouse_id"); warehouseID != "" {
		id, err := uuid.Parse(warehouseID)
		if err != nil {
			return filter, err
		}
		filter.WarehouseID = &id
	}
	if productID := c.Query("product_id"); productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			return filter, err
		}
		filter.ProductID = &id
	}
	if entryType := c.Query("type"); entryType != "" {
		t := inventory.LedgerEntryType(entryType)
		filter.Type = &t
	}
	if from := c.Query("from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, err
		}
		filter.From = &ts
	}
	if to := c.Query("to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, err
		}
		filter.To = &ts
	}
	return filter, nil
}
