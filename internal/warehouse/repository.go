package warehouse

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
)

type Repository interface {
	Create(ctx context.Context, w *model.Warehouse) error
	FindByID(ctx context.Context, id string) (*model.Warehouse, error)
	FindByCode(ctx context.Context, code string) (*model.Warehouse, error)
	FindAll(ctx context.Context, filters *dto.WarehouseFilters) ([]model.Warehouse, int, error)
	// FindActive returns active warehouses in reservation priority order.
	FindActive(ctx context.Context) ([]model.Warehouse, error)
	Update(ctx context.Context, w *model.Warehouse) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error

	// SetDefault clears the flag everywhere else, then sets it on id.
	// Callers run it inside Store.WithTx so readers never see zero or two.
	SetDefault(ctx context.Context, id string) error
	CountDefaults(ctx context.Context) (int, error)
	// LockDefaults queues the transaction behind any other default-flag
	// change. Take it before row locks.
	LockDefaults(ctx context.Context) error

	// Row locks. Inside a transaction they serialize deactivation against
	// reservations placed on the same warehouse.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Warehouse, error)
	FindByIDForShare(ctx context.Context, id string) (*model.Warehouse, error)
	FindActiveForUpdate(ctx context.Context) ([]model.Warehouse, error)
}
