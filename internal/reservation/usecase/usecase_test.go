package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	stockDTO "github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
	stockUC "github.com/fekuna/omnipos-inventory-service/internal/stock/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *store.Store
	clock  *testutil.Clock
	cache  *testutil.MemoryCache
	events *testutil.Publisher
	stock  stock.UseCase
	uc     reservation.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemory(),
		clock:  testutil.NewClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)),
		cache:  testutil.NewMemoryCache(),
		events: &testutil.Publisher{},
	}
	f.stock = stockUC.NewStockUseCase(f.store, f.cache, f.events, time.Minute, logger.NewNop())
	f.uc = NewReservationUseCase(f.store, f.cache, f.events, Options{
		CartTTL:     15 * time.Minute,
		CheckoutTTL: 30 * time.Minute,
		Now:         f.clock.Now,
	}, logger.NewNop())
	return f
}

func (f *fixture) warehouse(t *testing.T, id, code string, priority int) {
	t.Helper()
	require.NoError(t, f.store.Warehouses.Create(context.Background(), &model.Warehouse{
		ID: id, Code: code, Name: code, IsActive: true, Priority: priority, CreatedAt: f.clock.Now(),
	}))
}

func (f *fixture) record(t *testing.T, warehouseID, sku string, onHand int64) *model.StockRecord {
	t.Helper()
	rec, err := f.stock.CreateStockRecord(context.Background(), &stockDTO.CreateStockRecordInput{
		ProductRef:  "prod-" + sku,
		VariantRef:  "var-" + sku,
		WarehouseID: warehouseID,
		SKU:         sku,
		OpeningQty:  onHand,
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) get(t *testing.T, id string) *model.StockRecord {
	t.Helper()
	rec, err := f.stock.GetStockRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}

// assertConserved checks that every record's reserved counter equals the
// sum of its active reservations.
func (f *fixture) assertConserved(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	records, _, err := f.store.Stock.FindAll(ctx, &stockDTO.StockFilters{})
	require.NoError(t, err)
	for _, rec := range records {
		sum, err := f.store.Reservations.SumActiveByRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, sum, rec.QtyReserved, "reserved counter of %s", rec.SKU)
		assert.GreaterOrEqual(t, rec.QtyOnHand, int64(0))
	}
}

func TestReserveThenConvert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "TEE-M", 10)

	res, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "cart-1", Locator: "TEE-M", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, res.Status)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.ExpiresAt)

	got := f.get(t, rec.ID)
	assert.Equal(t, int64(10), got.QtyOnHand)
	assert.Equal(t, int64(3), got.QtyReserved)
	assert.Equal(t, int64(7), got.QtyAvailable())

	converted, err := f.uc.Convert(ctx, "cart-1", "order-9")
	require.NoError(t, err)
	require.Len(t, converted, 1)
	assert.Equal(t, model.ReservationConverted, converted[0].Status)
	require.NotNil(t, converted[0].OrderRef)
	assert.Equal(t, "order-9", *converted[0].OrderRef)

	got = f.get(t, rec.ID)
	assert.Equal(t, int64(7), got.QtyOnHand)
	assert.Equal(t, int64(0), got.QtyReserved)

	trail, _, err := f.stock.ListAdjustments(ctx, &stockDTO.AdjustmentFilters{
		StockRecordID: rec.ID, ReferenceType: model.ReferenceOrder,
	})
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, model.AdjustmentSale, trail[0].Type)
	assert.Equal(t, int64(-3), trail[0].QtyChange)
	require.NotNil(t, trail[0].ReferenceID)
	assert.Equal(t, "order-9", *trail[0].ReferenceID)

	report, err := f.stock.VerifyReplay(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	// nothing left to convert
	_, err = f.uc.Convert(ctx, "cart-1", "order-9")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	f.assertConserved(t)
}

func TestReserve_FallsBackByPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "EAST", 0)
	f.warehouse(t, "w2", "MAIN", 1)
	east := f.record(t, "w1", "MUG", 1)
	main := f.record(t, "w2", "MUG", 5)

	res, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "var-MUG", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, main.ID, res.StockRecordID)

	res, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c2", Locator: "MUG", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, east.ID, res.StockRecordID)

	_, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c3", Locator: "MUG", Quantity: 3})
	var insufficient *apperr.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(2), insufficient.Available)
	f.assertConserved(t)
}

func TestReserve_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	f.warehouse(t, "w2", "OLD", 1)
	f.record(t, "w1", "A", 5)
	f.record(t, "w2", "B", 5)
	require.NoError(t, f.store.Warehouses.SetActive(ctx, "w2", false))

	_, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "A", Quantity: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "NOPE", Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "A", Quantity: 1, WarehouseCode: "OLD"})
	assert.ErrorIs(t, err, apperr.ErrWarehouseInactive)

	// B only lives in an inactive warehouse
	_, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "B", Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrWarehouseInactive)
}

func TestReserve_Backorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "PRE", 1)
	allow, limit := true, int64(2)
	_, err := f.stock.UpdateStockSettings(ctx, &stockDTO.UpdateStockSettingsInput{ID: rec.ID, AllowBackorder: &allow, BackorderLimit: &limit})
	require.NoError(t, err)

	_, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "PRE", Quantity: 3})
	require.NoError(t, err)
	got := f.get(t, rec.ID)
	assert.Equal(t, int64(3), got.QtyReserved)
	assert.Equal(t, int64(0), got.QtyAvailable())

	_, err = f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c2", Locator: "PRE", Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrInsufficientQuantity)

	// on hand cannot cover the whole backordered hold yet
	_, err = f.uc.Convert(ctx, "c", "o1")
	assert.ErrorIs(t, err, apperr.ErrInsufficientQuantity)
	f.assertConserved(t)
}

func TestRelease_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "A", 5)

	res, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "A", Quantity: 2})
	require.NoError(t, err)

	released, err := f.uc.Release(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationReleased, released.Status)
	require.NotNil(t, released.ClosedAt)
	assert.Equal(t, int64(0), f.get(t, rec.ID).QtyReserved)

	_, err = f.uc.Release(ctx, res.ID)
	assert.ErrorIs(t, err, apperr.ErrNotActive)
	assert.Equal(t, int64(0), f.get(t, rec.ID).QtyReserved)

	_, err = f.uc.Release(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReleaseAllForCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	f.record(t, "w1", "A", 5)
	f.record(t, "w1", "B", 5)

	for _, sku := range []string{"A", "B"} {
		_, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "cart", Locator: sku, Quantity: 1})
		require.NoError(t, err)
	}
	_, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "other", Locator: "A", Quantity: 1})
	require.NoError(t, err)

	n, err := f.uc.ReleaseAllForCart(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.uc.ReleaseAllForCart(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	left, total, err := f.uc.ListReservations(ctx, &dto.ReservationFilters{Status: model.ReservationActive})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "other", left[0].CartRef)
	f.assertConserved(t)

	_, _, err = f.uc.ListReservations(ctx, &dto.ReservationFilters{Status: "lost"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "A", 5)

	old, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c1", Locator: "A", Quantity: 2})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)
	fresh, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c2", Locator: "A", Quantity: 1})
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)
	report, err := f.uc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Expired)
	assert.Empty(t, report.Failures)

	got, err := f.uc.GetReservation(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, got.Status)
	assert.Equal(t, int64(1), f.get(t, rec.ID).QtyReserved)

	// an expired hold cannot be released or converted
	_, err = f.uc.Release(ctx, old.ID)
	assert.ErrorIs(t, err, apperr.ErrNotActive)

	again, err := f.uc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Scanned)

	still, err := f.uc.GetReservation(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, still.Status)
	f.assertConserved(t)
}

func TestExpireStale_RespectsBatchSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	f.record(t, "w1", "A", 10)

	uc := NewReservationUseCase(f.store, nil, nil, Options{SweepBatchSize: 2, Now: f.clock.Now}, logger.NewNop())
	for i := 0; i < 3; i++ {
		_, err := uc.Reserve(ctx, &dto.ReserveInput{CartRef: "c", Locator: "A", Quantity: 1})
		require.NoError(t, err)
	}
	f.clock.Advance(time.Hour)

	first, err := uc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Expired)

	second, err := uc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Expired)
	f.assertConserved(t)
}

func TestExpireStale_OverlappingSweepsAndConverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	rec := f.record(t, "w1", "A", 20)

	ids := make([]string, 20)
	for i := range ids {
		res, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: fmt.Sprintf("c-%d", i), Locator: "A", Quantity: 1})
		require.NoError(t, err)
		ids[i] = res.ID
	}
	f.clock.Advance(16 * time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		expired int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := f.uc.ExpireStale(ctx)
			assert.NoError(t, err)
			assert.Empty(t, report.Failures)
			mu.Lock()
			expired += report.Expired
			mu.Unlock()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, err := f.uc.Convert(ctx, fmt.Sprintf("c-%d", i), fmt.Sprintf("o-%d", i))
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrNotFound)
			}
		}
		for _, id := range ids[10:15] {
			if _, err := f.uc.Release(ctx, id); err != nil {
				assert.ErrorIs(t, err, apperr.ErrNotActive)
			}
		}
	}()
	wg.Wait()

	counts := map[model.ReservationStatus]int{}
	for _, id := range ids {
		res, err := f.uc.GetReservation(ctx, id)
		require.NoError(t, err)
		counts[res.Status]++
	}
	assert.Zero(t, counts[model.ReservationActive])
	assert.Equal(t, 20, counts[model.ReservationExpired]+counts[model.ReservationConverted]+counts[model.ReservationReleased])
	assert.Equal(t, expired, counts[model.ReservationExpired])

	got := f.get(t, rec.ID)
	assert.Zero(t, got.QtyReserved)
	assert.Equal(t, int64(20-counts[model.ReservationConverted]), got.QtyOnHand)

	report, err := f.stock.VerifyReplay(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	f.assertConserved(t)
}

func TestReserveForCheckout_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 5)
	b := f.record(t, "w1", "B", 3)
	f.record(t, "w1", "C", 0)

	res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart",
		Items: []dto.CheckoutItem{
			{Locator: "A", Quantity: 2},
			{Locator: "B", Quantity: 10},
			{Locator: "C", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.AllReserved)
	assert.Empty(t, res.Reservations)
	assert.Empty(t, res.RollbackErrors)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, int64(3), res.Failures[0].Available)
	assert.Equal(t, 2, res.Failures[1].Index)
	assert.Equal(t, int64(0), res.Failures[1].Available)

	assert.Equal(t, int64(0), f.get(t, a.ID).QtyReserved)
	assert.Equal(t, int64(0), f.get(t, b.ID).QtyReserved)
	active, _, err := f.uc.ListReservations(ctx, &dto.ReservationFilters{CartRef: "cart", Status: model.ReservationActive})
	require.NoError(t, err)
	assert.Empty(t, active)
	f.assertConserved(t)
}

func TestReserveForCheckout_MergesAndSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 5)
	f.record(t, "w1", "B", 5)

	res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart",
		Items: []dto.CheckoutItem{
			{Locator: "A", Quantity: 1},
			{Locator: "B", Quantity: 2},
			{Locator: "A", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.AllReserved)
	require.Len(t, res.Reservations, 2)
	assert.Equal(t, int64(3), res.Reservations[0].Quantity)
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), res.Reservations[0].ExpiresAt)
	assert.Equal(t, int64(3), f.get(t, a.ID).QtyReserved)
	f.assertConserved(t)
}

func TestReserveForCheckout_SameRecordThroughDifferentLines(t *testing.T) {
	tests := []struct {
		name  string
		items []dto.CheckoutItem
	}{
		{"sku and variant", []dto.CheckoutItem{{Locator: "A", Quantity: 3}, {Locator: "var-A", Quantity: 2}}},
		{"with and without hint", []dto.CheckoutItem{{Locator: "A", Quantity: 3}, {Locator: "A", Quantity: 2, WarehouseCode: "main"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.warehouse(t, "w1", "MAIN", 0)
			a := f.record(t, "w1", "A", 10)

			res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{CartRef: "cart", Items: tt.items})
			require.NoError(t, err)
			require.True(t, res.AllReserved)
			require.Len(t, res.Reservations, 1)
			assert.Equal(t, int64(5), res.Reservations[0].Quantity)
			assert.Equal(t, int64(5), f.get(t, a.ID).QtyReserved)

			active, _, err := f.uc.ListReservations(ctx, &dto.ReservationFilters{CartRef: "cart", Status: model.ReservationActive})
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, int64(5), active[0].Quantity)
			f.assertConserved(t)
		})
	}
}

func TestReserveForCheckout_SameRecordGrowsExistingHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 10)

	_, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "cart", Locator: "A", Quantity: 4})
	require.NoError(t, err)

	// the first line alone would shrink the hold, the pair grows it
	res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart",
		Items:   []dto.CheckoutItem{{Locator: "A", Quantity: 2}, {Locator: "var-A", Quantity: 4}},
	})
	require.NoError(t, err)
	require.True(t, res.AllReserved)
	require.Len(t, res.Reservations, 1)
	assert.Equal(t, int64(6), res.Reservations[0].Quantity)
	assert.Equal(t, int64(6), f.get(t, a.ID).QtyReserved)
	f.assertConserved(t)
}

func TestReserveForCheckout_SameRecordOverLimitRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 4)

	res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart",
		Items:   []dto.CheckoutItem{{Locator: "A", Quantity: 3}, {Locator: "var-A", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.False(t, res.AllReserved)
	require.NotEmpty(t, res.Failures)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, int64(4), res.Failures[0].Available)
	assert.Zero(t, f.get(t, a.ID).QtyReserved)
	f.assertConserved(t)
}

func TestReserveForCheckout_AdjustsExistingHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 10)
	b := f.record(t, "w1", "B", 10)

	for _, sku := range []string{"A", "B"} {
		_, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "cart", Locator: sku, Quantity: 5})
		require.NoError(t, err)
	}
	f.clock.Advance(time.Minute)

	res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart",
		Items:   []dto.CheckoutItem{{Locator: "A", Quantity: 7}, {Locator: "B", Quantity: 2}},
	})
	require.NoError(t, err)
	require.True(t, res.AllReserved)
	assert.Equal(t, int64(7), f.get(t, a.ID).QtyReserved)
	assert.Equal(t, int64(2), f.get(t, b.ID).QtyReserved)
	for _, r := range res.Reservations {
		assert.Equal(t, f.clock.Now().Add(30*time.Minute), r.ExpiresAt)
	}
	f.assertConserved(t)
}

func TestReserveForCheckout_RestoresExtendedHoldExactly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", "MAIN", 0)
	a := f.record(t, "w1", "A", 10)
	f.record(t, "w1", "B", 1)

	held, err := f.uc.Reserve(ctx, &dto.ReserveInput{CartRef: "cart", Locator: "A", Quantity: 2})
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)

	res, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart",
		Items:   []dto.CheckoutItem{{Locator: "A", Quantity: 6}, {Locator: "B", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.False(t, res.AllReserved)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "B", res.Failures[0].SKU)

	restored, err := f.uc.GetReservation(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, restored.Status)
	assert.Equal(t, int64(2), restored.Quantity)
	assert.True(t, held.ExpiresAt.Equal(restored.ExpiresAt))
	assert.Equal(t, int64(2), f.get(t, a.ID).QtyReserved)
	f.assertConserved(t)
}

func TestReserveForCheckout_Validates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{CartRef: "cart"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{
		CartRef: "cart", Items: []dto.CheckoutItem{{Locator: "A", Quantity: -1}},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
