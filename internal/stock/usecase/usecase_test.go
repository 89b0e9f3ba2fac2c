package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *store.Store
	cache  *testutil.MemoryCache
	events *testutil.Publisher
	uc     *stockUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemory(),
		cache:  testutil.NewMemoryCache(),
		events: &testutil.Publisher{},
	}
	f.uc = NewStockUseCase(f.store, f.cache, f.events, time.Minute, logger.NewNop()).(*stockUseCase)
	return f
}

func (f *fixture) warehouse(t *testing.T, id, code string, priority int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Warehouses.Create(ctx, &model.Warehouse{
		ID: id, Code: code, Name: code, IsActive: true, Priority: priority, CreatedAt: time.Now(),
	}))
}

func (f *fixture) record(t *testing.T, warehouseID, sku string, opening int64) *model.StockRecord {
	t.Helper()
	rec, err := f.uc.CreateStockRecord(context.Background(), &dto.CreateStockRecordInput{
		ProductRef:        "prod-" + sku,
		VariantRef:        "var-" + sku,
		WarehouseID:       warehouseID,
		SKU:               sku,
		OpeningQty:        opening,
		LowStockThreshold: 2,
		Actor:             "tester",
	})
	require.NoError(t, err)
	return rec
}

func TestCreateStockRecord_OpeningBalanceIsOnTheTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)

	rec := f.record(t, "w1", "TEE-M", 10)
	assert.Equal(t, int64(10), rec.QtyOnHand)
	assert.Equal(t, int64(0), rec.QtyReserved)

	trail, total, err := f.uc.ListAdjustments(ctx, &dto.AdjustmentFilters{StockRecordID: rec.ID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, model.AdjustmentRestock, trail[0].Type)
	assert.Equal(t, model.ReferenceSystem, trail[0].ReferenceType)
	assert.Equal(t, int64(0), trail[0].QtyBefore)
	assert.Equal(t, int64(10), trail[0].QtyAfter)

	report, err := f.uc.VerifyReplay(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestCreateStockRecord_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	f.record(t, "w1", "TEE-M", 0)

	_, err := f.uc.CreateStockRecord(ctx, &dto.CreateStockRecordInput{
		ProductRef: "other", VariantRef: "other", WarehouseID: "w1", SKU: "TEE-M",
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = f.uc.CreateStockRecord(ctx, &dto.CreateStockRecordInput{
		ProductRef: "p", VariantRef: "v", WarehouseID: "nope", SKU: "X",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.uc.CreateStockRecord(ctx, &dto.CreateStockRecordInput{
		ProductRef: "p", VariantRef: "v", WarehouseID: "w1", SKU: "Y", OpeningQty: -1,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestApplyAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "TEE-M", 5)

	_, err := f.uc.IncrementReserved(ctx, rec.ID, 3)
	require.NoError(t, err)

	t.Run("sale by sku and warehouse code", func(t *testing.T) {
		adj, err := f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
			SKU: "TEE-M", WarehouseCode: "main", Type: model.AdjustmentSale, QtyChange: -2,
			Reason: "walk-in", ReferenceType: model.ReferenceOrder, ReferenceID: "ord-1", Actor: "clerk",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), adj.QtyBefore)
		assert.Equal(t, int64(3), adj.QtyAfter)
		require.NotNil(t, adj.Actor)
		assert.Equal(t, "clerk", *adj.Actor)
	})

	t.Run("cannot sell below reserved", func(t *testing.T) {
		_, err := f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
			StockRecordID: rec.ID, Type: model.AdjustmentDamage, QtyChange: -1, Reason: "dropped",
		})
		var insufficient *apperr.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, "MAIN", insufficient.WarehouseCode)
		assert.Equal(t, int64(0), insufficient.Available)
	})

	t.Run("sign and reason are checked", func(t *testing.T) {
		_, err := f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
			StockRecordID: rec.ID, Type: model.AdjustmentRestock, QtyChange: -1, Reason: "x",
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		_, err = f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
			StockRecordID: rec.ID, Type: model.AdjustmentRestock, QtyChange: 1, Reason: "  ",
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
			SKU: "NOPE", WarehouseCode: "MAIN", Type: model.AdjustmentRestock, QtyChange: 1, Reason: "x",
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	got, err := f.uc.GetStockRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.QtyOnHand)
	assert.Equal(t, int64(3), got.QtyReserved)

	report, err := f.uc.VerifyReplay(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Adjustments)
	assert.Equal(t, int64(3), report.ReplayedQty)
}

func TestIncrementReserved_NoLostUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "MUG", 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.IncrementReserved(ctx, rec.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, apperr.ErrInsufficientQuantity) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, refused)

	got, err := f.uc.GetStockRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.QtyReserved)
	assert.Equal(t, int64(0), got.QtyAvailable())
}

func TestIncrementReserved_NeverBelowZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "MUG", 5)

	_, err := f.uc.IncrementReserved(ctx, rec.ID, -1)
	assert.ErrorIs(t, err, apperr.ErrInvariantViolation)
}

func TestGetAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 1)
	f.warehouse(t, "w2", "EAST", 0)
	f.warehouse(t, "w3", "OLD", 2)

	main := f.record(t, "w1", "TEE-M", 4)
	f.record(t, "w2", "TEE-M", 6)
	f.record(t, "w3", "TEE-M", 100)
	require.NoError(t, f.store.Warehouses.SetActive(ctx, "w3", false))

	_, err := f.uc.IncrementReserved(ctx, main.ID, 1)
	require.NoError(t, err)

	av, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "TEE-M"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), av.OnHand)
	assert.Equal(t, int64(1), av.Reserved)
	assert.Equal(t, int64(9), av.Available)
	assert.Equal(t, model.StatusInStock, av.Status)
	require.Len(t, av.Warehouses, 2)
	assert.Equal(t, "EAST", av.Warehouses[0].WarehouseCode)
	assert.Equal(t, "MAIN", av.Warehouses[1].WarehouseCode)

	// variant refs resolve to the same records
	byVariant, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "var-TEE-M"})
	require.NoError(t, err)
	assert.Equal(t, av.Available, byVariant.Available)

	one, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "TEE-M", WarehouseCode: "main"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), one.Available)

	_, err = f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "TEE-M", WarehouseCode: "OLD"})
	assert.ErrorIs(t, err, apperr.ErrWarehouseInactive)

	_, err = f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "NOPE"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetAvailability_CacheInvalidatedByAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "CAP", 3)

	first, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	assert.True(t, f.cache.Has(stock.AvailabilityKey("CAP")))

	_, err = f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Hits)

	_, err = f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
		StockRecordID: rec.ID, Type: model.AdjustmentRestock, QtyChange: 2, Reason: "delivery",
	})
	require.NoError(t, err)
	assert.False(t, f.cache.Has(stock.AvailabilityKey("CAP")))

	second, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	assert.Equal(t, first.Available+2, second.Available)
}

func TestGetAvailability_LateFillDoesNotOutliveWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "CAP", 3)

	// The reader has already loaded the record when the adjustment commits
	// and invalidates; only then does it fill the cache.
	f.cache.BeforeSet = func(string) {
		f.cache.BeforeSet = nil
		_, err := f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
			StockRecordID: rec.ID, Type: model.AdjustmentRestock, QtyChange: 4, Reason: "delivery",
		})
		require.NoError(t, err)
	}
	stale, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stale.Available)
	assert.True(t, f.cache.Has(stock.AvailabilityKey("CAP")))

	fresh, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), fresh.Available)

	// the refreshed entry is served from then on
	hits := f.cache.Hits
	again, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), again.Available)
	assert.Equal(t, hits+1, f.cache.Hits)
}

func TestGetAvailability_WarehouseFlushRetiresEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	f.record(t, "w1", "CAP", 3)

	_, err := f.uc.GetAvailability(ctx, &dto.AvailabilityQuery{Locator: "CAP"})
	require.NoError(t, err)
	require.NoError(t, stock.FlushAvailability(ctx, f.cache))
	assert.False(t, f.cache.Has(stock.AvailabilityKey("CAP")))
}

func TestApplyAdjustment_PublishesStatusChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "SOCK", 3)
	before := len(f.events.Events())

	// 3 -> 2 crosses into low_stock (threshold 2)
	_, err := f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
		StockRecordID: rec.ID, Type: model.AdjustmentSale, QtyChange: -1, Reason: "sale",
	})
	require.NoError(t, err)
	// 2 -> 1 stays low_stock
	_, err = f.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
		StockRecordID: rec.ID, Type: model.AdjustmentSale, QtyChange: -1, Reason: "sale",
	})
	require.NoError(t, err)

	events := f.events.Events()[before:]
	require.Len(t, events, 1)
	ev := events[0].Event.(*stock.StatusEvent)
	assert.Equal(t, rec.ID, events[0].Key)
	assert.Equal(t, model.StatusInStock, ev.Previous)
	assert.Equal(t, model.StatusLowStock, ev.Current)
}

func TestBulkAdjust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 5)
	f.record(t, "w1", "B", 1)

	res, err := f.uc.BulkAdjust(ctx, []dto.BulkAdjustRow{
		{SKU: "A", WarehouseCode: "MAIN", QtyChange: -2},
		{SKU: "B", WarehouseCode: "MAIN", QtyChange: -5, Reason: "count"},
		{SKU: "C", WarehouseCode: "MAIN", QtyChange: 1},
		{SKU: "A", WarehouseCode: "MAIN", QtyChange: 0},
	}, "auditor")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 3, res.Failed)
	require.Len(t, res.Rows, 4)
	assert.True(t, res.Rows[0].OK)
	assert.Equal(t, "bulk adjustment", res.Rows[0].Adjustment.Reason)
	assert.Equal(t, model.AdjustmentCorrection, res.Rows[0].Adjustment.Type)
	assert.NotEmpty(t, res.Rows[1].Error)

	got, err := f.uc.GetStockRecord(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.QtyOnHand)

	_, err = f.uc.BulkAdjust(ctx, nil, "auditor")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestDashboard_TotalsSkipInactiveWarehouses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	f.warehouse(t, "w2", "OLD", 1)
	f.record(t, "w1", "A", 5)
	f.record(t, "w1", "B", 0)
	f.record(t, "w2", "A", 50)
	require.NoError(t, f.store.Warehouses.SetActive(ctx, "w2", false))

	d, err := f.uc.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Len(t, d.Warehouses, 2)
	assert.Equal(t, 2, d.Totals.Records)
	assert.Equal(t, int64(5), d.Totals.OnHand)
	assert.Equal(t, 1, d.Totals.InStock)
	assert.Equal(t, 1, d.Totals.OutOfStock)

	_, err = f.uc.Dashboard(ctx, "NOWHERE")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateStockSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "A", 2)

	allow := true
	limit := int64(4)
	got, err := f.uc.UpdateStockSettings(ctx, &dto.UpdateStockSettingsInput{
		ID: rec.ID, AllowBackorder: &allow, BackorderLimit: &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Holdable())

	_, err = f.uc.IncrementReserved(ctx, rec.ID, 6)
	require.NoError(t, err)

	negative := int64(-1)
	_, err = f.uc.UpdateStockSettings(ctx, &dto.UpdateStockSettingsInput{ID: rec.ID, ReorderPoint: &negative})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
