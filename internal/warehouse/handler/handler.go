package handler

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/rpc"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.inventory.v1.WarehouseService"

type WarehouseHandler struct {
	uc     warehouse.UseCase
	logger logger.ZapLogger
}

func NewWarehouseHandler(uc warehouse.UseCase, log logger.ZapLogger) *WarehouseHandler {
	return &WarehouseHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *WarehouseHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "CreateWarehouse", h.CreateWarehouse),
			rpc.Unary(ServiceName, "GetWarehouse", h.GetWarehouse),
			rpc.Unary(ServiceName, "ListWarehouses", h.ListWarehouses),
			rpc.Unary(ServiceName, "ListActiveWarehouses", h.ListActiveWarehouses),
			rpc.Unary(ServiceName, "UpdateWarehouse", h.UpdateWarehouse),
			rpc.Unary(ServiceName, "SetDefaultWarehouse", h.SetDefaultWarehouse),
			rpc.Unary(ServiceName, "ActivateWarehouse", h.ActivateWarehouse),
			rpc.Unary(ServiceName, "DeactivateWarehouse", h.DeactivateWarehouse),
			rpc.Unary(ServiceName, "DeleteWarehouse", h.DeleteWarehouse),
		},
		Metadata: "omnipos/inventory/v1/warehouse.json",
	}, h)
}

func (h *WarehouseHandler) CreateWarehouse(ctx context.Context, req *CreateWarehouseRequest) (*WarehouseResponse, error) {
	w, err := h.uc.CreateWarehouse(ctx, &dto.CreateWarehouseInput{
		Code:      req.Code,
		Name:      req.Name,
		Address:   req.Address,
		Priority:  req.Priority,
		IsDefault: req.IsDefault,
		Inactive:  req.Inactive,
	})
	if err != nil {
		h.logger.Warn("failed to create warehouse", zap.String("code", req.Code), zap.Error(err))
		return nil, rpc.ToStatus(err)
	}
	return &WarehouseResponse{Warehouse: w}, nil
}

func (h *WarehouseHandler) GetWarehouse(ctx context.Context, req *GetWarehouseRequest) (*WarehouseResponse, error) {
	if req.ID != "" {
		found, err := h.uc.GetWarehouse(ctx, req.ID)
		if err != nil {
			return nil, rpc.ToStatus(err)
		}
		return &WarehouseResponse{Warehouse: found}, nil
	}

	found, err := h.uc.GetWarehouseByCode(ctx, req.Code)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &WarehouseResponse{Warehouse: found}, nil
}

func (h *WarehouseHandler) ListWarehouses(ctx context.Context, req *ListWarehousesRequest) (*ListWarehousesResponse, error) {
	items, total, err := h.uc.ListWarehouses(ctx, &dto.WarehouseFilters{
		IsActive: req.IsActive,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ListWarehousesResponse{Warehouses: items, Total: total}, nil
}

func (h *WarehouseHandler) ListActiveWarehouses(ctx context.Context, _ *Empty) (*ListWarehousesResponse, error) {
	items, err := h.uc.ActiveByPriority(ctx)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ListWarehousesResponse{Warehouses: items, Total: len(items)}, nil
}

func (h *WarehouseHandler) UpdateWarehouse(ctx context.Context, req *UpdateWarehouseRequest) (*WarehouseResponse, error) {
	w, err := h.uc.UpdateWarehouse(ctx, &dto.UpdateWarehouseInput{
		ID:       req.ID,
		Name:     req.Name,
		Address:  req.Address,
		Priority: req.Priority,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &WarehouseResponse{Warehouse: w}, nil
}

func (h *WarehouseHandler) SetDefaultWarehouse(ctx context.Context, req *WarehouseIDRequest) (*WarehouseResponse, error) {
	w, err := h.uc.SetDefault(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &WarehouseResponse{Warehouse: w}, nil
}

func (h *WarehouseHandler) ActivateWarehouse(ctx context.Context, req *WarehouseIDRequest) (*WarehouseResponse, error) {
	w, err := h.uc.Activate(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &WarehouseResponse{Warehouse: w}, nil
}

func (h *WarehouseHandler) DeactivateWarehouse(ctx context.Context, req *WarehouseIDRequest) (*WarehouseResponse, error) {
	w, err := h.uc.Deactivate(ctx, req.ID)
	if err != nil {
		h.logger.Warn("failed to deactivate warehouse", zap.String("warehouse_id", req.ID), zap.Error(err))
		return nil, rpc.ToStatus(err)
	}
	return &WarehouseResponse{Warehouse: w}, nil
}

func (h *WarehouseHandler) DeleteWarehouse(ctx context.Context, req *WarehouseIDRequest) (*Empty, error) {
	if err := h.uc.DeleteWarehouse(ctx, req.ID); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &Empty{}, nil
}
