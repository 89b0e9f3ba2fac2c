package stock

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
)

type UseCase interface {
	CreateStockRecord(ctx context.Context, input *dto.CreateStockRecordInput) (*model.StockRecord, error)
	UpdateStockSettings(ctx context.Context, input *dto.UpdateStockSettingsInput) (*model.StockRecord, error)
	GetStockRecord(ctx context.Context, id string) (*model.StockRecord, error)
	ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error)

	GetAvailability(ctx context.Context, query *dto.AvailabilityQuery) (*dto.Availability, error)
	ApplyAdjustment(ctx context.Context, input *dto.AdjustStockInput) (*model.Adjustment, error)
	IncrementReserved(ctx context.Context, stockRecordID string, delta int64) (*model.StockRecord, error)

	ListAdjustments(ctx context.Context, filters *dto.AdjustmentFilters) ([]model.Adjustment, int, error)
	VerifyReplay(ctx context.Context, stockRecordID string) (*dto.ReplayReport, error)
	BulkAdjust(ctx context.Context, rows []dto.BulkAdjustRow, actor string) (*dto.BulkAdjustResult, error)
	Dashboard(ctx context.Context, warehouseCode string) (*dto.Dashboard, error)
}
