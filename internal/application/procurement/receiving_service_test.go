package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivingFixture struct {
	store     *uow.MemoryStore
	service   *ReceivingService
	actor     shared.Actor
	warehouse *partner.Warehouse
}

func newReceivingFixture(t *testing.T) *receivingFixture {
	t.Helper()
	store := uow.NewMemoryStore()
	actor := shared.Actor{UserID: uuid.New(), TenantID: uuid.New(), Name: "receiver"}
	warehouse, err := partner.NewWarehouse(actor.TenantID, "WH-01", "Main Warehouse")
	require.NoError(t, err)
	store.AddWarehouse(warehouse)
	return &receivingFixture{
		store:     store,
		service:   NewReceivingService(store, shared.AllowAll(), nil),
		actor:     actor,
		warehouse: warehouse,
	}
}

// shippedPO seeds an order with a single line of 10 units already SHIPPED
func (f *receivingFixture) shippedPO(t *testing.T) (*procurement.PurchaseOrder, *procurement.POItem) {
	t.Helper()
	supplier, err := partner.NewSupplier(f.actor.TenantID, "S-001", "Acme Textiles", partner.CapabilitySupplier)
	require.NoError(t, err)
	f.store.AddSupplier(supplier)

	po, err := procurement.NewPurchaseOrder(f.actor.TenantID, "PO-RCV-1", supplier.ID, supplier.Name, procurement.POTypeFinished, nil)
	require.NoError(t, err)
	item, err := po.AddItem(uuid.New(), "Silk Scarf", decimal.NewFromInt(10), decimal.NewFromFloat(25.50))
	require.NoError(t, err)
	require.NoError(t, po.Submit())
	require.NoError(t, po.ConfirmQuote(decimal.NewFromInt(255)))
	require.NoError(t, po.ConfirmPayment())
	require.NoError(t, po.ConfirmProduction())
	_, err = po.Ship("DHL", "TRK-RCV")
	require.NoError(t, err)
	f.store.AddPurchaseOrder(po)
	return po, item
}

func (f *receivingFixture) receipt(po *procurement.PurchaseOrder, item *procurement.POItem, qty int64) ConfirmReceiptInput {
	return ConfirmReceiptInput{
		POID:         po.ID,
		WarehouseID:  f.warehouse.ID,
		ReceivedDate: time.Now(),
		Items: []ReceiptLineInput{
			{POItemID: item.ID, ProductID: item.ProductID, Quantity: decimal.NewFromInt(qty)},
		},
	}
}

func TestConfirmReceiptPartialThenFull(t *testing.T) {
	f := newReceivingFixture(t)
	po, item := f.shippedPO(t)
	ctx := context.Background()

	result, err := f.service.ConfirmReceipt(ctx, f.actor, f.receipt(po, item, 6))
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusPartiallyReceived), result.Status)
	assert.False(t, result.AllFullyReceived)
	assert.True(t, f.store.StockQuantity(f.actor.TenantID, f.warehouse.ID, item.ProductID).Equal(decimal.NewFromInt(6)))

	result, err = f.service.ConfirmReceipt(ctx, f.actor, f.receipt(po, item, 4))
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusCompleted), result.Status)
	assert.True(t, result.AllFullyReceived)
	assert.True(t, f.store.StockQuantity(f.actor.TenantID, f.warehouse.ID, item.ProductID).Equal(decimal.NewFromInt(10)))

	// one RECEIPT entry per posted line, balances chained
	entries := f.store.LedgerEntries()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, inventory.LedgerEntryReceipt, entry.Type)
		assert.Equal(t, po.ID, *entry.ReferenceID)
		assert.True(t, entry.BalanceBefore.Add(entry.QuantityDelta).Equal(entry.BalanceAfter))
	}
	assert.True(t, entries[0].BalanceAfter.Equal(entries[1].BalanceBefore))

	// a completed order accepts no further receipts
	_, err = f.service.ConfirmReceipt(ctx, f.actor, f.receipt(po, item, 1))
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestConfirmReceiptFullOneShot(t *testing.T) {
	f := newReceivingFixture(t)
	po, item := f.shippedPO(t)

	result, err := f.service.ConfirmReceipt(context.Background(), f.actor, f.receipt(po, item, 10))
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusCompleted), result.Status)
	assert.True(t, result.AllFullyReceived)
}

func TestConfirmReceiptOverReceiptAtomic(t *testing.T) {
	f := newReceivingFixture(t)
	po, item := f.shippedPO(t)

	_, err := f.service.ConfirmReceipt(context.Background(), f.actor, f.receipt(po, item, 11))
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.Contains(t, err.Error(), item.ID.String())

	// nothing moved: order untouched, no stock, no ledger entries
	stored := f.store.PurchaseOrder(po.ID)
	assert.Equal(t, procurement.POStatusShipped, stored.Status)
	assert.True(t, stored.Items[0].ReceivedQuantity.IsZero())
	assert.True(t, f.store.StockQuantity(f.actor.TenantID, f.warehouse.ID, item.ProductID).IsZero())
	assert.Empty(t, f.store.LedgerEntries())
}

func TestConfirmReceiptValidation(t *testing.T) {
	f := newReceivingFixture(t)
	po, item := f.shippedPO(t)
	ctx := context.Background()

	t.Run("unknown warehouse", func(t *testing.T) {
		input := f.receipt(po, item, 1)
		input.WarehouseID = uuid.New()
		_, err := f.service.ConfirmReceipt(ctx, f.actor, input)
		require.Error(t, err)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})

	t.Run("unknown order", func(t *testing.T) {
		input := f.receipt(po, item, 1)
		input.POID = uuid.New()
		_, err := f.service.ConfirmReceipt(ctx, f.actor, input)
		require.Error(t, err)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})

	t.Run("unknown line", func(t *testing.T) {
		input := f.receipt(po, item, 1)
		input.Items[0].POItemID = uuid.New()
		_, err := f.service.ConfirmReceipt(ctx, f.actor, input)
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})
}

func TestConfirmReceiptBeforeShipping(t *testing.T) {
	f := newReceivingFixture(t)
	supplier, err := partner.NewSupplier(f.actor.TenantID, "S-002", "Beta Mills", partner.CapabilitySupplier)
	require.NoError(t, err)
	f.store.AddSupplier(supplier)

	po, err := procurement.NewPurchaseOrder(f.actor.TenantID, "PO-RCV-2", supplier.ID, supplier.Name, procurement.POTypeFinished, nil)
	require.NoError(t, err)
	item, err := po.AddItem(uuid.New(), "Wool Hat", decimal.NewFromInt(4), decimal.NewFromInt(12))
	require.NoError(t, err)
	require.NoError(t, po.Submit())
	f.store.AddPurchaseOrder(po)

	_, err = f.service.ConfirmReceipt(context.Background(), f.actor, f.receipt(po, item, 1))
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.Empty(t, f.store.LedgerEntries())
}

func TestConfirmReceiptIncrementsExistingStock(t *testing.T) {
	f := newReceivingFixture(t)
	po, item := f.shippedPO(t)

	existing, err := inventory.NewStockItem(f.actor.TenantID, f.warehouse.ID, item.ProductID, decimal.NewFromInt(5))
	require.NoError(t, err)
	f.store.AddStock(existing)

	_, err = f.service.ConfirmReceipt(context.Background(), f.actor, f.receipt(po, item, 10))
	require.NoError(t, err)
	assert.True(t, f.store.StockQuantity(f.actor.TenantID, f.warehouse.ID, item.ProductID).Equal(decimal.NewFromInt(15)))

	entries := f.store.LedgerEntries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].BalanceBefore.Equal(decimal.NewFromInt(5)))
	assert.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(15)))
}
