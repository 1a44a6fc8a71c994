package handler

import (
	"net/http"
	"testing"

	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inventoryAPIFixture struct {
	store  *uow.MemoryStore
	actor  shared.Actor
	engine *gin.Engine
	main   *partner.Warehouse
	backup *partner.Warehouse
}

func newInventoryAPIFixture(t *testing.T) *inventoryAPIFixture {
	t.Helper()
	store := uow.NewMemoryStore()
	actor := testActor()
	handler := NewInventoryHandler(
		inventoryapp.NewLedgerService(store, shared.AllowAll(), newMemoryTokens(), nil),
	)

	main, err := partner.NewWarehouse(actor.TenantID, "WH-01", "Main Warehouse")
	require.NoError(t, err)
	store.AddWarehouse(main)
	backup, err := partner.NewWarehouse(actor.TenantID, "WH-02", "Backup Warehouse")
	require.NoError(t, err)
	store.AddWarehouse(backup)

	return &inventoryAPIFixture{
		store:  store,
		actor:  actor,
		engine: newAPIServer(actor, handler),
		main:   main,
		backup: backup,
	}
}

func (f *inventoryAPIFixture) seedStock(t *testing.T, warehouseID, productID uuid.UUID, qty int64) {
	t.Helper()
	item, err := inventory.NewStockItem(f.actor.TenantID, warehouseID, productID, decimal.NewFromInt(qty))
	require.NoError(t, err)
	f.store.AddStock(item)
}

func TestInventoryAdjustEndpoint(t *testing.T) {
	f := newInventoryAPIFixture(t)
	productID := uuid.New()

	t.Run("positive delta creates the row", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/adjustments", map[string]any{
			"warehouse_id": f.main.ID,
			"product_id":   productID,
			"delta":        "15",
			"reason":       "initial stocktake",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result inventoryapp.AdjustResult
		decodeData(t, resp, &result)
		assert.Equal(t, "15", result.NewQuantity.String())
	})

	t.Run("negative result is rejected", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/adjustments", map[string]any{
			"warehouse_id": f.main.ID,
			"product_id":   productID,
			"delta":        "-100",
			"reason":       "shrinkage",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, resp.Error)
	})

	t.Run("missing reason fails binding", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/adjustments", map[string]any{
			"warehouse_id": f.main.ID,
			"product_id":   productID,
			"delta":        "5",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInventoryAdjustIdempotencyHeader(t *testing.T) {
	f := newInventoryAPIFixture(t)
	productID := uuid.New()

	body := map[string]any{
		"warehouse_id": f.main.ID,
		"product_id":   productID,
		"delta":        "5",
		"reason":       "replay test",
	}

	send := func() inventoryapp.AdjustResult {
		rec, resp := serveJSONWithHeaders(t, f.engine, http.MethodPost, "/api/v1/inventory/adjustments", body,
			map[string]string{IdempotencyHeaderKey: "adjust-once-123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result inventoryapp.AdjustResult
		decodeData(t, resp, &result)
		return result
	}

	first := send()
	assert.False(t, first.Duplicate)

	second := send()
	assert.True(t, second.Duplicate)

	qty := f.store.StockQuantity(f.actor.TenantID, f.main.ID, productID)
	assert.Equal(t, "5", qty.String())
}

func TestInventoryTransferEndpoint(t *testing.T) {
	f := newInventoryAPIFixture(t)
	productID := uuid.New()
	f.seedStock(t, f.main.ID, productID, 20)

	t.Run("moves stock between warehouses", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/transfers", map[string]any{
			"from_warehouse_id": f.main.ID,
			"to_warehouse_id":   f.backup.ID,
			"items": []map[string]any{
				{"product_id": productID, "quantity": "8"},
			},
			"reason": "rebalance",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result inventoryapp.TransferResult
		decodeData(t, resp, &result)
		assert.Equal(t, 1, result.ItemCount)

		assert.Equal(t, "12", f.store.StockQuantity(f.actor.TenantID, f.main.ID, productID).String())
		assert.Equal(t, "8", f.store.StockQuantity(f.actor.TenantID, f.backup.ID, productID).String())
	})

	t.Run("insufficient stock rolls back", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/transfers", map[string]any{
			"from_warehouse_id": f.main.ID,
			"to_warehouse_id":   f.backup.ID,
			"items": []map[string]any{
				{"product_id": productID, "quantity": "9999"},
			},
			"reason": "too much",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		assert.Equal(t, "12", f.store.StockQuantity(f.actor.TenantID, f.main.ID, productID).String())
	})
}

func TestInventoryMinStockAndAlerts(t *testing.T) {
	f := newInventoryAPIFixture(t)
	productID := uuid.New()
	f.seedStock(t, f.main.ID, productID, 3)

	rec, _ := serveJSON(t, f.engine, http.MethodPut, "/api/v1/inventory/min-stock", map[string]any{
		"warehouse_id": f.main.ID,
		"product_id":   productID,
		"min_stock":    "5",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/inventory/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var alerts []inventoryapp.StockAlertDTO
	decodeData(t, resp, &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, productID, alerts[0].ProductID)
	assert.Equal(t, "2", alerts[0].Shortage.String())
}

func TestInventoryStockAndLedgerListing(t *testing.T) {
	f := newInventoryAPIFixture(t)
	productID := uuid.New()

	rec, _ := serveJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/adjustments", map[string]any{
		"warehouse_id": f.main.ID,
		"product_id":   productID,
		"delta":        "10",
		"reason":       "receiving dock count",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("stock list", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/inventory/stock", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)

		var items []inventoryapp.StockItemDTO
		decodeData(t, resp, &items)
		require.Len(t, items, 1)
		assert.Equal(t, "10", items[0].Quantity.String())
	})

	t.Run("ledger list filtered by warehouse", func(t *testing.T) {
		rec, resp := serveJSON(t, f.engine, http.MethodGet, "/api/v1/inventory/ledger?warehouse_id="+f.main.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []inventoryapp.LedgerEntryDTO
		decodeData(t, resp, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, "ADJUST", entries[0].Type)
		assert.Equal(t, "10", entries[0].QuantityDelta.String())
	})

	t.Run("bad warehouse filter", func(t *testing.T) {
		rec, _ := serveJSON(t, f.engine, http.MethodGet, "/api/v1/inventory/ledger?warehouse_id=nope", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
