package handler

import (
	"fmt"
	"net/http"
	"testing"

	routingapp "github.com/orderflow/backend/internal/application/routing"
	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/ordering"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routingAPIFixture struct {
	store  *uow.MemoryStore
	actor  shared.Actor
	engine *gin.Engine
}

func newRoutingAPIFixture(t *testing.T) *routingAPIFixture {
	t.Helper()
	store := uow.NewMemoryStore()
	actor := testActor()
	handler := NewRoutingHandler(
		routingapp.NewRuleService(store, shared.AllowAll(), nil),
		routingapp.NewSplitService(store, shared.AllowAll(), nil),
		routingapp.NewPendingPoolService(store, shared.AllowAll(), nil),
	)
	return &routingAPIFixture{
		store:  store,
		actor:  actor,
		engine: newAPIServer(actor, handler),
	}
}

func (f *routingAPIFixture) addSupplier(t *testing.T, name string, capability partner.SupplierCapability) *partner.Supplier {
	t.Helper()
	supplier, err := partner.NewSupplier(f.actor.TenantID, "S-"+name, name, capability)
	require.NoError(t, err)
	f.store.AddSupplier(supplier)
	return supplier
}

func TestRoutingRuleEndpoints(t *testing.T) {
	f := newRoutingAPIFixture(t)
	supplier := f.addSupplier(t, "Acme Textiles", partner.CapabilitySupplier)

	ruleBody := map[string]any{
		"name":     "finished goods to acme",
		"priority": 10,
		"conditions": []map[string]any{
			{"field": "product_type", "operator": "eq", "value": "FINISHED"},
		},
		"target_type":        "PURCHASE_ORDER",
		"target_supplier_id": supplier.ID,
	}

	var ruleID uuid.UUID
	t.Run("create rule", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodPost, "/api/v1/routing/rules", ruleBody)
		require.Equal(t, http.StatusCreated, rec.Code)
		var rule routingapp.RuleDTO
		decodeData(t, resp, &rule)
		assert.Equal(t, "finished goods to acme", rule.Name)
		assert.True(t, rule.IsActive)
		ruleID = rule.ID
	})

	t.Run("get rule", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/rules/"+ruleID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var rule routingapp.RuleDTO
		decodeData(t, resp, &rule)
		assert.Equal(t, ruleID, rule.ID)
	})

	t.Run("list rules with meta", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/rules?page=1&page_size=10", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("update rule", func(t *testing.T) {
		update := ruleBody
		update["name"] = "renamed rule"
		update["is_active"] = true
		rec, resp := serveJSON(t, f.engine, http.MethodPut, "/api/v1/routing/rules/"+ruleID.String(), update)
		require.Equal(t, http.StatusOK, rec.Code)
		var rule routingapp.RuleDTO
		decodeData(t, resp, &rule)
		assert.Equal(t, "renamed rule", rule.Name)
	})

	t.Run("malformed rule id", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/rules/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, resp.Error)
	})

	t.Run("unknown rule is 404", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/rules/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete rule", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodDelete, "/api/v1/routing/rules/"+ruleID.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec, _ = serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/rules/"+ruleID.String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create rejects missing conditions", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodPost, "/api/v1/routing/rules", map[string]any{
			"name":               "no conditions",
			"target_type":        "PURCHASE_ORDER",
			"target_supplier_id": supplier.ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExecuteSplitEndpoint(t *testing.T) {
	f := newRoutingAPIFixture(t)
	supplier := f.addSupplier(t, "Finished Goods Co", partner.CapabilitySupplier)
	orderID := uuid.New()

	supplierID := supplier.ID
	f.store.AddOrderLines(orderID, []ordering.OrderLine{
		{
			ID:                uuid.New(),
			OrderID:           orderID,
			TenantID:          f.actor.TenantID,
			ProductID:         uuid.New(),
			SKU:               "SKU-SHIRT",
			ProductName:       "Shirt",
			ProductType:       ordering.ProductTypeFinished,
			Quantity:          decimal.NewFromInt(5),
			UnitPrice:         decimal.NewFromInt(20),
			DefaultSupplierID: &supplierID,
		},
	})

	path := fmt.Sprintf("/api/v1/routing/orders/%s/split", orderID)
	rec, resp := serveJSON(t, f.engine, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result routingapp.SplitResult
	decodeData(t, resp, &result)
	assert.Len(t, result.CreatedPOIDs, 1)
	assert.Empty(t, result.UnmatchedItemIDs)
	assert.Equal(t, 1, result.Summary.TotalItems)
}

func TestPendingPoolEndpoints(t *testing.T) {
	f := newRoutingAPIFixture(t)
	supplier := f.addSupplier(t, "Pool Seller", partner.CapabilitySupplier)
	orderID := uuid.New()

	line := ordering.OrderLine{
		ID:          uuid.New(),
		OrderID:     orderID,
		TenantID:    f.actor.TenantID,
		ProductID:   uuid.New(),
		SKU:         "SKU-LOOSE",
		ProductName: "Loose",
		ProductType: ordering.ProductTypeFinished,
		Quantity:    decimal.NewFromInt(3),
		UnitPrice:   decimal.NewFromInt(12),
	}
	f.store.AddOrderLines(orderID, []ordering.OrderLine{line})

	t.Run("list pool", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/pool?item_type=UNMATCHED", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("assign lines", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodPost, "/api/v1/routing/pool/assign", map[string]any{
			"line_ids":    []string{line.ID.String()},
			"supplier_id": supplier.ID,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var result routingapp.AssignLinesResult
		decodeData(t, resp, &result)
		require.Len(t, result.CreatedPOIDs, 1)
		assert.Equal(t, 1, result.AssignedLineCount)
	})

	t.Run("submit drafts", func(t *testing.T) {
		po := f.store.OrderLine(line.ID).POID
		require.NotNil(t, po)
		rec, resp := serveJSON(t, f.engine, http.MethodPost, "/api/v1/routing/pool/submit", map[string]any{
			"po_ids": []string{po.String()},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var result routingapp.SubmitDraftsResult
		decodeData(t, resp, &result)
		assert.Equal(t, 1, result.SubmittedCount)
		assert.Zero(t, result.SkippedCount)
	})

	t.Run("malformed supplier filter", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodGet, "/api/v1/routing/pool?supplier_id=nope", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRoutingEndpointsRequireClaims(t *testing.T) {
	store := uow.NewMemoryStore()
	handler := NewRoutingHandler(
		routingapp.NewRuleService(store, shared.AllowAll(), nil),
		routingapp.NewSplitService(store, shared.AllowAll(), nil),
		routingapp.NewPendingPoolService(store, shared.AllowAll(), nil),
	)

	engine := gin.New()
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api)

	rec, resp := serveJSON(t, engine, http.MethodGet, "/api/v1/routing/rules", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
}
