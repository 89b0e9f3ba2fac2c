package handler

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/rpc"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.inventory.v1.StockService"

type StockHandler struct {
	uc     stock.UseCase
	logger logger.ZapLogger
}

func NewStockHandler(uc stock.UseCase, log logger.ZapLogger) *StockHandler {
	return &StockHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *StockHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "CreateStockRecord", h.CreateStockRecord),
			rpc.Unary(ServiceName, "UpdateStockSettings", h.UpdateStockSettings),
			rpc.Unary(ServiceName, "GetStockRecord", h.GetStockRecord),
			rpc.Unary(ServiceName, "ListStock", h.ListStock),
			rpc.Unary(ServiceName, "GetAvailability", h.GetAvailability),
			rpc.Unary(ServiceName, "AdjustStock", h.AdjustStock),
			rpc.Unary(ServiceName, "ListAdjustments", h.ListAdjustments),
			rpc.Unary(ServiceName, "VerifyReplay", h.VerifyReplay),
			rpc.Unary(ServiceName, "BulkAdjust", h.BulkAdjust),
			rpc.Unary(ServiceName, "GetDashboard", h.GetDashboard),
		},
		Metadata: "omnipos/inventory/v1/stock.json",
	}, h)
}

func (h *StockHandler) CreateStockRecord(ctx context.Context, req *CreateStockRecordRequest) (*StockRecordResponse, error) {
	rec, err := h.uc.CreateStockRecord(ctx, &dto.CreateStockRecordInput{
		ProductRef:        req.ProductRef,
		VariantRef:        req.VariantRef,
		WarehouseID:       req.WarehouseID,
		SKU:               req.SKU,
		OpeningQty:        req.OpeningQty,
		LowStockThreshold: req.LowStockThreshold,
		AllowBackorder:    req.AllowBackorder,
		ReorderPoint:      req.ReorderPoint,
		BackorderLimit:    req.BackorderLimit,
		Actor:             auth.GetActor(ctx),
	})
	if err != nil {
		h.logger.Warn("failed to create stock record", zap.String("sku", req.SKU), zap.Error(err))
		return nil, rpc.ToStatus(err)
	}
	return mapRecord(rec), nil
}

func (h *StockHandler) UpdateStockSettings(ctx context.Context, req *UpdateStockSettingsRequest) (*StockRecordResponse, error) {
	rec, err := h.uc.UpdateStockSettings(ctx, &dto.UpdateStockSettingsInput{
		ID:                req.ID,
		LowStockThreshold: req.LowStockThreshold,
		AllowBackorder:    req.AllowBackorder,
		ReorderPoint:      req.ReorderPoint,
		BackorderLimit:    req.BackorderLimit,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return mapRecord(rec), nil
}

func (h *StockHandler) GetStockRecord(ctx context.Context, req *StockRecordIDRequest) (*StockRecordResponse, error) {
	rec, err := h.uc.GetStockRecord(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return mapRecord(rec), nil
}

func (h *StockHandler) ListStock(ctx context.Context, req *ListStockRequest) (*ListStockResponse, error) {
	items, total, err := h.uc.ListStock(ctx, &dto.StockFilters{
		WarehouseID: req.WarehouseID,
		SKU:         req.SKU,
		VariantRef:  req.VariantRef,
		ProductRef:  req.ProductRef,
		Status:      model.StockStatus(req.Status),
		Page:        req.Page,
		PageSize:    req.PageSize,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}

	records := make([]StockRecordResponse, len(items))
	for i := range items {
		records[i] = *mapRecord(&items[i])
	}
	return &ListStockResponse{Records: records, Total: total}, nil
}

func (h *StockHandler) GetAvailability(ctx context.Context, req *GetAvailabilityRequest) (*dto.Availability, error) {
	av, err := h.uc.GetAvailability(ctx, &dto.AvailabilityQuery{
		Locator:       req.Locator,
		WarehouseCode: req.WarehouseCode,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return av, nil
}

func (h *StockHandler) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*AdjustmentResponse, error) {
	adj, err := h.uc.ApplyAdjustment(ctx, &dto.AdjustStockInput{
		StockRecordID: req.StockRecordID,
		SKU:           req.SKU,
		WarehouseCode: req.WarehouseCode,
		Type:          model.AdjustmentType(req.Type),
		QtyChange:     req.QtyChange,
		Reason:        req.Reason,
		ReferenceType: model.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		Actor:         auth.GetActor(ctx),
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &AdjustmentResponse{Adjustment: adj}, nil
}

func (h *StockHandler) ListAdjustments(ctx context.Context, req *ListAdjustmentsRequest) (*ListAdjustmentsResponse, error) {
	items, total, err := h.uc.ListAdjustments(ctx, &dto.AdjustmentFilters{
		StockRecordID: req.StockRecordID,
		Type:          model.AdjustmentType(req.Type),
		ReferenceType: model.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ListAdjustmentsResponse{Adjustments: items, Total: total}, nil
}

// VerifyReplay reports a mismatch in the response body; only lookup and
// storage failures become gRPC errors.
func (h *StockHandler) VerifyReplay(ctx context.Context, req *StockRecordIDRequest) (*ReplayResponse, error) {
	report, err := h.uc.VerifyReplay(ctx, req.ID)
	if err != nil {
		if report != nil && errors.Is(err, apperr.ErrInvariantViolation) {
			h.logger.Error("adjustment replay mismatch", zap.String("stock_record_id", req.ID), zap.Error(err))
			return &ReplayResponse{Report: report, Error: err.Error()}, nil
		}
		return nil, rpc.ToStatus(err)
	}
	return &ReplayResponse{Report: report}, nil
}

func (h *StockHandler) BulkAdjust(ctx context.Context, req *BulkAdjustRequest) (*dto.BulkAdjustResult, error) {
	rows := make([]dto.BulkAdjustRow, len(req.Rows))
	for i, r := range req.Rows {
		rows[i] = dto.BulkAdjustRow{
			SKU:           r.SKU,
			WarehouseCode: r.WarehouseCode,
			QtyChange:     r.QtyChange,
			Reason:        r.Reason,
		}
	}

	res, err := h.uc.BulkAdjust(ctx, rows, auth.GetActor(ctx))
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return res, nil
}

func (h *StockHandler) GetDashboard(ctx context.Context, req *DashboardRequest) (*dto.Dashboard, error) {
	d, err := h.uc.Dashboard(ctx, req.WarehouseCode)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return d, nil
}

func mapRecord(rec *model.StockRecord) *StockRecordResponse {
	return &StockRecordResponse{
		Record:       rec,
		Available:    rec.QtyAvailable(),
		Status:       rec.Status(),
		NeedsReorder: rec.NeedsReorder(),
	}
}
