package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/internal/testutil"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (warehouse.UseCase, *store.Store, *testutil.MemoryCache) {
	t.Helper()
	s := store.NewMemory()
	cache := testutil.NewMemoryCache()
	return NewWarehouseUseCase(s, cache, logger.NewNop()), s, cache
}

func create(t *testing.T, uc warehouse.UseCase, code string, priority int) *model.Warehouse {
	t.Helper()
	w, err := uc.CreateWarehouse(context.Background(), &dto.CreateWarehouseInput{
		Code: code, Name: code + " warehouse", Priority: priority,
	})
	require.NoError(t, err)
	return w
}

func defaults(t *testing.T, s *store.Store) int {
	t.Helper()
	n, err := s.Warehouses.CountDefaults(context.Background())
	require.NoError(t, err)
	return n
}

func TestCreateWarehouse(t *testing.T) {
	uc, s, _ := setup(t)
	ctx := context.Background()

	first := create(t, uc, " main ", 1)
	assert.Equal(t, "MAIN", first.Code)
	assert.True(t, first.IsDefault, "first active warehouse becomes the default")

	second := create(t, uc, "east", 0)
	assert.False(t, second.IsDefault)

	_, err := uc.CreateWarehouse(ctx, &dto.CreateWarehouseInput{Code: "MAIN", Name: "dup"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, err = uc.CreateWarehouse(ctx, &dto.CreateWarehouseInput{Code: "", Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = uc.CreateWarehouse(ctx, &dto.CreateWarehouseInput{Code: "X", Name: "x", IsDefault: true, Inactive: true})
	assert.ErrorIs(t, err, apperr.ErrWarehouseInactive)

	third, err := uc.CreateWarehouse(ctx, &dto.CreateWarehouseInput{Code: "WEST", Name: "west", Priority: 2, IsDefault: true})
	require.NoError(t, err)
	assert.True(t, third.IsDefault)
	assert.Equal(t, 1, defaults(t, s))

	active, err := uc.ActiveByPriority(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "EAST", active[0].Code)
}

func TestSetDefault_KeepsExactlyOne(t *testing.T) {
	uc, s, _ := setup(t)
	ctx := context.Background()
	a := create(t, uc, "A", 0)
	b := create(t, uc, "B", 1)

	got, err := uc.SetDefault(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, 1, defaults(t, s))

	old, err := uc.GetWarehouse(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, old.IsDefault)

	_, err = uc.SetDefault(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetDefault_Concurrent(t *testing.T) {
	uc, s, _ := setup(t)
	ctx := context.Background()
	main := create(t, uc, "MAIN", 0)
	var ids []string
	for i, code := range []string{"EAST", "WEST", "NORTH"} {
		ids = append(ids, create(t, uc, code, i+1).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := uc.SetDefault(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := uc.Deactivate(ctx, main.ID)
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, 1, defaults(t, s))
	got, err := uc.GetWarehouse(ctx, main.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
}

func TestDeactivate(t *testing.T) {
	uc, s, cache := setup(t)
	ctx := context.Background()
	main := create(t, uc, "MAIN", 0)
	east := create(t, uc, "EAST", 1)
	require.NoError(t, cache.SetJSON(ctx, "inventory:availability:TEE", 1, time.Minute))

	t.Run("hands the default to the next active warehouse", func(t *testing.T) {
		got, err := uc.Deactivate(ctx, main.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		next, err := uc.GetWarehouse(ctx, east.ID)
		require.NoError(t, err)
		assert.True(t, next.IsDefault)
		assert.Equal(t, 1, defaults(t, s))
		assert.False(t, cache.Has("inventory:availability:TEE"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		got, err := uc.Deactivate(ctx, main.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("refuses the last active warehouse", func(t *testing.T) {
		_, err := uc.Deactivate(ctx, east.ID)
		assert.ErrorIs(t, err, apperr.ErrLastActiveWarehouse)
	})

	t.Run("reactivation keeps the existing default", func(t *testing.T) {
		got, err := uc.Activate(ctx, main.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		assert.False(t, got.IsDefault)
		assert.Equal(t, 1, defaults(t, s))
	})
}

func TestDeactivate_BlockedByActiveReservations(t *testing.T) {
	uc, s, _ := setup(t)
	ctx := context.Background()
	main := create(t, uc, "MAIN", 0)
	create(t, uc, "EAST", 1)

	now := time.Now()
	require.NoError(t, s.Stock.Create(ctx, &model.StockRecord{ID: "s1", WarehouseID: main.ID, SKU: "A", ProductRef: "p", VariantRef: "v", QtyOnHand: 5, QtyReserved: 1}))
	require.NoError(t, s.Reservations.Create(ctx, &model.Reservation{
		ID: "r1", StockRecordID: "s1", CartRef: "cart", Quantity: 1,
		Status: model.ReservationActive, ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}))

	_, err := uc.Deactivate(ctx, main.ID)
	assert.ErrorIs(t, err, apperr.ErrHasActiveReservations)

	w, err := uc.GetWarehouse(ctx, main.ID)
	require.NoError(t, err)
	assert.True(t, w.IsActive)
	assert.True(t, w.IsDefault)
}

func TestDeleteWarehouse(t *testing.T) {
	uc, s, _ := setup(t)
	ctx := context.Background()
	main := create(t, uc, "MAIN", 0)
	east := create(t, uc, "EAST", 1)
	west := create(t, uc, "WEST", 2)

	assert.ErrorIs(t, uc.DeleteWarehouse(ctx, main.ID), apperr.ErrDefaultWarehouse)

	require.NoError(t, s.Stock.Create(ctx, &model.StockRecord{ID: "s1", WarehouseID: east.ID, SKU: "A", ProductRef: "p", VariantRef: "v"}))
	assert.ErrorIs(t, uc.DeleteWarehouse(ctx, east.ID), apperr.ErrHasStockRecords)

	require.NoError(t, uc.DeleteWarehouse(ctx, west.ID))
	_, err := uc.GetWarehouse(ctx, west.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateAndList(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	create(t, uc, "MAIN", 0)
	east := create(t, uc, "EAST", 5)

	name := "East Coast DC"
	priority := 0
	got, err := uc.UpdateWarehouse(ctx, &dto.UpdateWarehouseInput{
		ID: east.ID, Name: &name, Priority: &priority,
		Address: &model.Address{City: "Boston", Country: "US"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, "Boston", got.City)

	items, total, err := uc.ListWarehouses(ctx, &dto.WarehouseFilters{Search: "coast"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "EAST", items[0].Code)

	blank := " "
	_, err = uc.UpdateWarehouse(ctx, &dto.UpdateWarehouseInput{ID: east.ID, Name: &blank})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	byCode, err := uc.GetWarehouseByCode(ctx, "east")
	require.NoError(t, err)
	assert.Equal(t, east.ID, byCode.ID)
}
