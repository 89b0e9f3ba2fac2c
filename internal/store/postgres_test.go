package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/migrate"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	resDTO "github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	resUC "github.com/fekuna/omnipos-inventory-service/internal/reservation/usecase"
	stockDTO "github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
	stockUC "github.com/fekuna/omnipos-inventory-service/internal/stock/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/internal/testutil"
	whDTO "github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	whUC "github.com/fekuna/omnipos-inventory-service/internal/warehouse/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresInventory(t *testing.T) {
	db := testutil.SetupTestPostgres(t)
	ctx := context.Background()
	log := logger.NewNop()

	require.NoError(t, migrate.MigrateInventoryDB(ctx, db, log, migrate.DefaultOptions()))

	s := store.NewPostgres(db)
	warehouses := whUC.NewWarehouseUseCase(s, nil, log)
	stocks := stockUC.NewStockUseCase(s, nil, nil, 0, log)
	clock := testutil.NewClock(time.Now().UTC())
	reservations := resUC.NewReservationUseCase(s, nil, nil, resUC.Options{
		CartTTL:     15 * time.Minute,
		CheckoutTTL: 30 * time.Minute,
		Now:         clock.Now,
	}, log)

	main, err := warehouses.CreateWarehouse(ctx, &whDTO.CreateWarehouseInput{Code: "main", Name: "Main"})
	require.NoError(t, err)
	assert.True(t, main.IsDefault)

	rec, err := stocks.CreateStockRecord(ctx, &stockDTO.CreateStockRecordInput{
		ProductRef: "p1", VariantRef: "v1", WarehouseID: main.ID, SKU: "TEE", OpeningQty: 5,
	})
	require.NoError(t, err)

	t.Run("concurrent holds never oversell", func(t *testing.T) {
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, fail int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := reservations.Reserve(ctx, &resDTO.ReserveInput{
					CartRef: "cart-" + string(rune('a'+i)), Locator: "TEE", Quantity: 1,
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
					return
				}
				assert.True(t, errors.Is(err, apperr.ErrInsufficientQuantity), err)
				fail++
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 5, ok)
		assert.Equal(t, 5, fail)

		got, err := stocks.GetStockRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.QtyReserved)
		sum, err := s.Reservations.SumActiveByRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, got.QtyReserved, sum)
	})

	t.Run("expiry returns every hold", func(t *testing.T) {
		clock.Advance(16 * time.Minute)
		report, err := reservations.ExpireStale(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, report.Expired)

		got, err := stocks.GetStockRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Zero(t, got.QtyReserved)
	})

	t.Run("adjustments replay onto the record", func(t *testing.T) {
		_, err := stocks.ApplyAdjustment(ctx, &stockDTO.AdjustStockInput{
			SKU: "TEE", WarehouseCode: "MAIN", Type: model.AdjustmentRestock, QtyChange: 7, Reason: "delivery", Actor: "op-1",
		})
		require.NoError(t, err)

		_, err = stocks.ApplyAdjustment(ctx, &stockDTO.AdjustStockInput{
			StockRecordID: rec.ID, Type: model.AdjustmentDamage, QtyChange: -20, Reason: "flood",
		})
		assert.ErrorIs(t, err, apperr.ErrInsufficientQuantity)

		report, err := stocks.VerifyReplay(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.Equal(t, 3, report.Adjustments)
	})

	t.Run("concurrent default swaps keep one default", func(t *testing.T) {
		var ids []string
		for _, code := range []string{"east", "west", "north", "south"} {
			w, err := warehouses.CreateWarehouse(ctx, &whDTO.CreateWarehouseInput{Code: code, Name: code})
			require.NoError(t, err)
			ids = append(ids, w.ID)
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := warehouses.SetDefault(ctx, id)
				assert.NoError(t, err)
			}(id)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := warehouses.Deactivate(ctx, main.ID)
			assert.NoError(t, err)
		}()
		wg.Wait()

		n, err := s.Warehouses.CountDefaults(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx *store.Store) error {
			if _, err := tx.Stock.IncrementReserved(ctx, rec.ID, 3); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := stocks.GetStockRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Zero(t, got.QtyReserved)
	})
}
