package procurement

import (
	"context"
	"testing"

	"github.com/orderflow/backend/internal/application/uow"
	"github.com/orderflow/backend/internal/domain/partner"
	"github.com/orderflow/backend/internal/domain/procurement"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poFixture struct {
	store   *uow.MemoryStore
	service *POService
	actor   shared.Actor
}

func newPOFixture(t *testing.T) *poFixture {
	t.Helper()
	store := uow.NewMemoryStore()
	return &poFixture{
		store:   store,
		service: NewPOService(store, shared.AllowAll(), nil),
		actor:   shared.Actor{UserID: uuid.New(), TenantID: uuid.New(), Name: "buyer"},
	}
}

func (f *poFixture) addSupplier(t *testing.T) *partner.Supplier {
	t.Helper()
	supplier, err := partner.NewSupplier(f.actor.TenantID, "S-001", "Acme Textiles", partner.CapabilitySupplier)
	require.NoError(t, err)
	f.store.AddSupplier(supplier)
	return supplier
}

// seedPO plants an order directly in the store, bypassing the service, so
// lifecycle tests can start from any status
func (f *poFixture) seedPO(t *testing.T, supplier *partner.Supplier, status procurement.POStatus) *procurement.PurchaseOrder {
	t.Helper()
	po, err := procurement.NewPurchaseOrder(f.actor.TenantID, "PO-SEED-1", supplier.ID, supplier.Name, procurement.POTypeFinished, nil)
	require.NoError(t, err)
	_, err = po.AddItem(uuid.New(), "Silk Scarf", decimal.NewFromInt(10), decimal.NewFromFloat(25.50))
	require.NoError(t, err)

	steps := []func() error{
		po.Submit,
		func() error { return po.ConfirmQuote(decimal.NewFromInt(255)) },
		po.ConfirmPayment,
		po.ConfirmProduction,
		func() error { _, err := po.Ship("DHL", "TRK-001"); return err },
	}
	targets := []procurement.POStatus{
		procurement.POStatusPendingConfirmation,
		procurement.POStatusPendingPayment,
		procurement.POStatusInProduction,
		procurement.POStatusReady,
		procurement.POStatusShipped,
	}
	for i, step := range steps {
		if po.Status == status {
			break
		}
		require.NoError(t, step())
		require.Equal(t, targets[i], po.Status)
	}
	require.Equal(t, status, po.Status)
	f.store.AddPurchaseOrder(po)
	return po
}

func TestPOServiceCreate(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)

	input := CreatePOInput{
		SupplierID: supplier.ID,
		Type:       "STOCK",
		Items: []CreatePOItemInput{
			{ProductID: uuid.New(), ProductName: "Wool Hat", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(12)},
		},
	}
	dto, err := f.service.CreatePurchaseOrder(context.Background(), f.actor, input)
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusDraft), dto.Status)
	assert.Equal(t, supplier.Name, dto.SupplierName)
	assert.NotEmpty(t, dto.PONo)
	require.Len(t, dto.Items, 1)

	t.Run("unknown supplier", func(t *testing.T) {
		bad := input
		bad.SupplierID = uuid.New()
		_, err := f.service.CreatePurchaseOrder(context.Background(), f.actor, bad)
		require.Error(t, err)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})

	t.Run("zero quantity item fails whole create", func(t *testing.T) {
		bad := input
		bad.Items = []CreatePOItemInput{
			{ProductID: uuid.New(), ProductName: "Empty", Quantity: decimal.Zero},
		}
		_, err := f.service.CreatePurchaseOrder(context.Background(), f.actor, bad)
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})
}

func TestPOServiceLifecycle(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)
	po := f.seedPO(t, supplier, procurement.POStatusDraft)
	ctx := context.Background()

	dto, err := f.service.Submit(ctx, f.actor, po.ID)
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusPendingConfirmation), dto.Status)

	dto, err = f.service.ConfirmQuote(ctx, f.actor, po.ID, ConfirmQuoteInput{TotalAmount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusPendingPayment), dto.Status)
	assert.True(t, dto.TotalAmount.Equal(decimal.NewFromInt(300)))

	dto, err = f.service.ConfirmPayment(ctx, f.actor, po.ID)
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusInProduction), dto.Status)

	dto, err = f.service.ConfirmProduction(ctx, f.actor, po.ID)
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusReady), dto.Status)

	// jumping the queue is rejected and the stored order is untouched
	_, err = f.service.ConfirmPayment(ctx, f.actor, po.ID)
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.Equal(t, procurement.POStatusReady, f.store.PurchaseOrder(po.ID).Status)

	// each successful mutation leaves an audit record
	assert.Len(t, f.store.AuditEntries(), 4)
}

func TestPOServiceUpdateStatusRejectsShipped(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)
	po := f.seedPO(t, supplier, procurement.POStatusReady)

	_, err := f.service.UpdateStatus(context.Background(), f.actor, po.ID, UpdateStatusInput{Status: "SHIPPED"})
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.Equal(t, procurement.POStatusReady, f.store.PurchaseOrder(po.ID).Status)
}

func TestPOServiceShip(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)
	po := f.seedPO(t, supplier, procurement.POStatusReady)

	dto, err := f.service.Ship(context.Background(), f.actor, po.ID, ShipInput{Carrier: "DHL", TrackingNo: "TRK-998"})
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusShipped), dto.Status)

	shipments := f.store.Shipments()
	require.Len(t, shipments, 1)
	assert.Equal(t, po.ID, shipments[0].POID)
	assert.Equal(t, "TRK-998", shipments[0].TrackingNo)

	t.Run("missing carrier leaves order and shipments untouched", func(t *testing.T) {
		other := newPOFixture(t)
		sup := other.addSupplier(t)
		ready := other.seedPO(t, sup, procurement.POStatusReady)

		_, err := other.service.Ship(context.Background(), other.actor, ready.ID, ShipInput{TrackingNo: "TRK-1"})
		require.Error(t, err)
		assert.Equal(t, procurement.POStatusReady, other.store.PurchaseOrder(ready.ID).Status)
		assert.Empty(t, other.store.Shipments())
	})
}

func TestPOServiceCancel(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)
	po := f.seedPO(t, supplier, procurement.POStatusInProduction)

	dto, err := f.service.Cancel(context.Background(), f.actor, po.ID, CancelInput{Reason: "supplier defaulted"})
	require.NoError(t, err)
	assert.Equal(t, string(procurement.POStatusCancelled), dto.Status)
	assert.Equal(t, "supplier defaulted", dto.CancelReason)

	_, err = f.service.Submit(context.Background(), f.actor, po.ID)
	require.Error(t, err)
}

func TestPOServiceBatchDeleteDrafts(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)
	ctx := context.Background()

	draftIDs := make([]uuid.UUID, 0, 2)
	for i := 0; i < 2; i++ {
		dto, err := f.service.CreatePurchaseOrder(ctx, f.actor, CreatePOInput{
			SupplierID: supplier.ID,
			Type:       "STOCK",
			Items: []CreatePOItemInput{
				{ProductID: uuid.New(), ProductName: "Buttons", Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromInt(1)},
			},
		})
		require.NoError(t, err)
		draftIDs = append(draftIDs, dto.ID)
	}
	submitted := f.seedPO(t, supplier, procurement.POStatusPendingConfirmation)

	t.Run("non draft fails whole batch", func(t *testing.T) {
		err := f.service.BatchDeleteDrafts(ctx, f.actor, BatchDeleteDraftsInput{POIDs: append(draftIDs, submitted.ID)})
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		// drafts survive the failed batch
		for _, id := range draftIDs {
			assert.NotNil(t, f.store.PurchaseOrder(id))
		}
	})

	t.Run("unknown id fails whole batch", func(t *testing.T) {
		err := f.service.BatchDeleteDrafts(ctx, f.actor, BatchDeleteDraftsInput{POIDs: append(draftIDs, uuid.New())})
		require.Error(t, err)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})

	t.Run("all drafts deleted", func(t *testing.T) {
		require.NoError(t, f.service.BatchDeleteDrafts(ctx, f.actor, BatchDeleteDraftsInput{POIDs: draftIDs}))
		for _, id := range draftIDs {
			assert.Nil(t, f.store.PurchaseOrder(id))
		}
		assert.NotNil(t, f.store.PurchaseOrder(submitted.ID))
	})
}

func TestPOServicePermissionDenied(t *testing.T) {
	f := newPOFixture(t)
	supplier := f.addSupplier(t)
	po := f.seedPO(t, supplier, procurement.POStatusDraft)

	denied := shared.PermissionCheckerFunc(func(_ context.Context, _ shared.Actor, _ shared.Capability) error {
		return shared.NewUnauthorizedError("FORBIDDEN", "procurement not allowed")
	})
	service := NewPOService(f.store, denied, nil)

	_, err := service.Submit(context.Background(), f.actor, po.ID)
	require.Error(t, err)
	assert.Equal(t, shared.KindUnauthorized, shared.KindOf(err))
	assert.Equal(t, procurement.POStatusDraft, f.store.PurchaseOrder(po.ID).Status)
}
