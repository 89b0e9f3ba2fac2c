package warehouse

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
)

type UseCase interface {
	CreateWarehouse(ctx context.Context, input *dto.CreateWarehouseInput) (*model.Warehouse, error)
	GetWarehouse(ctx context.Context, id string) (*model.Warehouse, error)
	GetWarehouseByCode(ctx context.Context, code string) (*model.Warehouse, error)
	ListWarehouses(ctx context.Context, filters *dto.WarehouseFilters) ([]model.Warehouse, int, error)
	UpdateWarehouse(ctx context.Context, input *dto.UpdateWarehouseInput) (*model.Warehouse, error)
	SetDefault(ctx context.Context, id string) (*model.Warehouse, error)
	Activate(ctx context.Context, id string) (*model.Warehouse, error)
	Deactivate(ctx context.Context, id string) (*model.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error
	ActiveByPriority(ctx context.Context) ([]model.Warehouse, error)
}
