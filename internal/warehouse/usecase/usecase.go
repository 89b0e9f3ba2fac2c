package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type warehouseUseCase struct {
	store  *store.Store
	cache  stock.AvailabilityCache
	logger logger.ZapLogger
}

func NewWarehouseUseCase(s *store.Store, cache stock.AvailabilityCache, log logger.ZapLogger) warehouse.UseCase {
	return &warehouseUseCase{
		store:  s,
		cache:  cache,
		logger: log,
	}
}

func (uc *warehouseUseCase) CreateWarehouse(ctx context.Context, input *dto.CreateWarehouseInput) (*model.Warehouse, error) {
	code := model.NormalizeCode(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" {
		return nil, apperr.Invalid("warehouse code is required")
	}
	if name == "" {
		return nil, apperr.Invalid("warehouse name is required")
	}
	if input.Priority < 0 {
		return nil, apperr.Invalid("priority must not be negative")
	}
	if input.IsDefault && input.Inactive {
		return nil, fmt.Errorf("default warehouse %s: %w", code, apperr.ErrWarehouseInactive)
	}

	now := time.Now().UTC()
	w := &model.Warehouse{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      name,
		Address:   input.Address,
		IsActive:  !input.Inactive,
		Priority:  input.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Warehouses.LockDefaults(ctx); err != nil {
			return err
		}
		existing, err := tx.Warehouses.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("warehouse %s: %w", code, apperr.ErrAlreadyExists)
		}

		makeDefault := input.IsDefault
		if !makeDefault && w.IsActive {
			defaults, err := tx.Warehouses.CountDefaults(ctx)
			if err != nil {
				return err
			}
			makeDefault = defaults == 0
		}

		if err := tx.Warehouses.Create(ctx, w); err != nil {
			return err
		}
		if makeDefault {
			if err := tx.Warehouses.SetDefault(ctx, w.ID); err != nil {
				return err
			}
			w.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("warehouse created", zap.String("warehouse_id", w.ID), zap.String("code", w.Code), zap.Bool("default", w.IsDefault))
	return w, nil
}

func (uc *warehouseUseCase) GetWarehouse(ctx context.Context, id string) (*model.Warehouse, error) {
	w, err := uc.store.Warehouses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.NotFound("warehouse", id)
	}
	return w, nil
}

func (uc *warehouseUseCase) GetWarehouseByCode(ctx context.Context, code string) (*model.Warehouse, error) {
	w, err := uc.store.Warehouses.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.NotFound("warehouse", model.NormalizeCode(code))
	}
	return w, nil
}

func (uc *warehouseUseCase) ListWarehouses(ctx context.Context, filters *dto.WarehouseFilters) ([]model.Warehouse, int, error) {
	if filters == nil {
		filters = &dto.WarehouseFilters{}
	}
	return uc.store.Warehouses.FindAll(ctx, filters)
}

func (uc *warehouseUseCase) UpdateWarehouse(ctx context.Context, input *dto.UpdateWarehouseInput) (*model.Warehouse, error) {
	var updated *model.Warehouse
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		w, err := tx.Warehouses.FindByIDForUpdate(ctx, input.ID)
		if err != nil {
			return err
		}
		if w == nil {
			return apperr.NotFound("warehouse", input.ID)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperr.Invalid("warehouse name is required")
			}
			w.Name = name
		}
		if input.Address != nil {
			w.Address = *input.Address
		}
		if input.Priority != nil {
			if *input.Priority < 0 {
				return apperr.Invalid("priority must not be negative")
			}
			w.Priority = *input.Priority
		}
		w.UpdatedAt = time.Now().UTC()

		if err := tx.Warehouses.Update(ctx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	// priority changes reorder the per-warehouse breakdown
	uc.flushAvailability(ctx)
	return updated, nil
}

func (uc *warehouseUseCase) SetDefault(ctx context.Context, id string) (*model.Warehouse, error) {
	var result *model.Warehouse
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Warehouses.LockDefaults(ctx); err != nil {
			return err
		}
		w, err := tx.Warehouses.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return apperr.NotFound("warehouse", id)
		}
		if !w.IsActive {
			return fmt.Errorf("warehouse %s: %w", w.Code, apperr.ErrWarehouseInactive)
		}
		if !w.IsDefault {
			if err := tx.Warehouses.SetDefault(ctx, w.ID); err != nil {
				return err
			}
			w.IsDefault = true
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *warehouseUseCase) Activate(ctx context.Context, id string) (*model.Warehouse, error) {
	var result *model.Warehouse
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Warehouses.LockDefaults(ctx); err != nil {
			return err
		}
		w, err := tx.Warehouses.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return apperr.NotFound("warehouse", id)
		}
		if w.IsActive {
			result = w
			return nil
		}
		if err := tx.Warehouses.SetActive(ctx, id, true); err != nil {
			return err
		}
		defaults, err := tx.Warehouses.CountDefaults(ctx)
		if err != nil {
			return err
		}
		if defaults == 0 {
			if err := tx.Warehouses.SetDefault(ctx, id); err != nil {
				return err
			}
		}
		result, err = tx.Warehouses.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.flushAvailability(ctx)
	return result, nil
}

// Deactivate takes the warehouse row lock before counting reservations, so
// a Reserve holding the shared lock either finishes first (and is counted)
// or waits and then sees the warehouse inactive.
func (uc *warehouseUseCase) Deactivate(ctx context.Context, id string) (*model.Warehouse, error) {
	var result *model.Warehouse
	var handedTo string
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Warehouses.LockDefaults(ctx); err != nil {
			return err
		}
		// Lock every active row in priority order first; Reserve takes its
		// share locks in the same order.
		active, err := tx.Warehouses.FindActiveForUpdate(ctx)
		if err != nil {
			return err
		}
		w, err := tx.Warehouses.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return apperr.NotFound("warehouse", id)
		}
		if !w.IsActive {
			result = w
			return nil
		}

		var next *model.Warehouse
		for i := range active {
			if active[i].ID != w.ID {
				next = &active[i]
				break
			}
		}
		if next == nil {
			return fmt.Errorf("warehouse %s: %w", w.Code, apperr.ErrLastActiveWarehouse)
		}

		held, err := tx.Reservations.CountActiveByWarehouse(ctx, w.ID)
		if err != nil {
			return err
		}
		if held > 0 {
			return fmt.Errorf("warehouse %s has %d: %w", w.Code, held, apperr.ErrHasActiveReservations)
		}

		if err := tx.Warehouses.SetActive(ctx, w.ID, false); err != nil {
			return err
		}
		if w.IsDefault {
			if err := tx.Warehouses.SetDefault(ctx, next.ID); err != nil {
				return err
			}
			handedTo = next.Code
		}

		result, err = tx.Warehouses.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if handedTo != "" {
		uc.logger.Info("default warehouse reassigned",
			zap.String("from", result.Code), zap.String("to", handedTo))
	}
	uc.flushAvailability(ctx)
	return result, nil
}

func (uc *warehouseUseCase) DeleteWarehouse(ctx context.Context, id string) error {
	return uc.store.WithTx(ctx, func(tx *store.Store) error {
		w, err := tx.Warehouses.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return apperr.NotFound("warehouse", id)
		}
		if w.IsDefault {
			return fmt.Errorf("warehouse %s: %w", w.Code, apperr.ErrDefaultWarehouse)
		}
		n, err := tx.Stock.CountByWarehouse(ctx, w.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("warehouse %s has %d: %w", w.Code, n, apperr.ErrHasStockRecords)
		}
		return tx.Warehouses.Delete(ctx, w.ID)
	})
}

func (uc *warehouseUseCase) ActiveByPriority(ctx context.Context) ([]model.Warehouse, error) {
	return uc.store.Warehouses.FindActive(ctx)
}

func (uc *warehouseUseCase) flushAvailability(ctx context.Context) {
	if err := stock.FlushAvailability(ctx, uc.cache); err != nil {
		uc.logger.Warn("failed to flush availability cache", zap.Error(err))
	}
}
