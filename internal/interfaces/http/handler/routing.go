package handler

import (
	routingapp "github.com/orderflow/backend/internal/application/routing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoutingHandler handles split rule management, routing run, and pending
// pool endpoints
type RoutingHandler struct {
	BaseHandler
	rules *routingapp.RuleService
	split *routingapp.SplitService
	pool  *routingapp.PendingPoolService
}

// NewRoutingHandler creates a new RoutingHandler
func NewRoutingHandler(rules *routingapp.RuleService, split *routingapp.SplitService, pool *routingapp.PendingPoolService) *RoutingHandler {
	return &RoutingHandler{
		rules: rules,
		split: split,
		pool:  pool,
	}
}

// RegisterRoutes registers all routing endpoints
func (h *RoutingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/routing/rules")
	{
		rules.GET("", h.ListRules)
		rules.POST("", h.CreateRule)
		rules.GET("/:id", h.GetRule)
		rules.PUT("/:id", h.UpdateRule)
		rules.DELETE("/:id", h.DeleteRule)
	}

	rg.POST("/routing/orders/:order_id/split", h.ExecuteSplit)

	pool := rg.Group("/routing/pool")
	{
		pool.GET("", h.ListPendingPool)
		pool.POST("/assign", h.AssignPoolLines)
		pool.POST("/merge", h.MergePoolLines)
		pool.POST("/submit", h.SubmitPoolDrafts)
	}
}

// CreateRule creates a new split rule
func (h *RoutingHandler) CreateRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input routingapp.CreateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rule, err := h.rules.CreateRule(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, rule)
}

// GetRule retrieves a split rule by ID
func (h *RoutingHandler) GetRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	rule, err := h.rules.GetRule(c.Request.Context(), actor, ruleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// ListRules lists split rules ordered by resolution priority
func (h *RoutingHandler) ListRules(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseListFilter(c)
	if active := c.Query("is_active"); active != "" {
		filter.Filters["is_active"] = active == "true"
	}
	if targetType := c.Query("target_type"); targetType != "" {
		filter.Filters["target_type"] = targetType
	}

	page, err := h.rules.ListRules(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// UpdateRule replaces the definition of a split rule
func (h *RoutingHandler) UpdateRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	var input routingapp.UpdateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rule, err := h.rules.UpdateRule(c.Request.Context(), actor, ruleID, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// DeleteRule removes a split rule
func (h *RoutingHandler) DeleteRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	if err := h.rules.DeleteRule(c.Request.Context(), actor, ruleID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ExecuteSplit runs split routing for one sales order. The run either
// creates every document it resolved or none of them.
func (h *RoutingHandler) ExecuteSplit(c *gin.Context) {
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

	result, err := h.split.ExecuteSplitRouting(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListPendingPool lists draft purchase orders, pending production tasks, and
// unmatched order lines awaiting manual assignment
func (h *RoutingHandler) ListPendingPool(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := parseListFilter(c)
	query := routingapp.PendingPoolQuery{
		ItemType:    routingapp.PendingItemType(c.Query("item_type")),
		ProductType: c.Query("product_type"),
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}
	if raw := c.Query("supplier_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid supplier ID format")
			return
		}
		query.SupplierID = &id
	}
	if raw := c.Query("order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid order ID format")
			return
		}
		query.OrderID = &id
	}

	page, err := h.pool.ListPendingPool(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// AssignPoolLines routes unmatched lines to one supplier, one draft purchase
// order per sales order
func (h *RoutingHandler) AssignPoolLines(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input routingapp.AssignLinesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.pool.AssignLines(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// MergePoolLines combines unmatched lines across sales orders into draft
// purchase orders grouped by supplier
func (h *RoutingHandler) MergePoolLines(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input routingapp.MergeLinesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.pool.MergeLines(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// SubmitPoolDrafts sends a batch of draft purchase orders into the
// confirmation flow
func (h *RoutingHandler) SubmitPoolDrafts(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var input routingapp.SubmitDraftsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.pool.SubmitDrafts(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
