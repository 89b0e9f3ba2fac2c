package stock

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
)

type Repository interface {
	// Stock records
	Create(ctx context.Context, rec *model.StockRecord) error
	FindByID(ctx context.Context, id string) (*model.StockRecord, error)
	FindBySKU(ctx context.Context, sku, warehouseID string) (*model.StockRecord, error)
	FindByIdentity(ctx context.Context, productRef, variantRef, warehouseID string) (*model.StockRecord, error)
	// FindByLocator matches records whose sku or variant_ref equals locator.
	FindByLocator(ctx context.Context, locator string) ([]model.StockRecord, error)
	FindAll(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error)
	CountByWarehouse(ctx context.Context, warehouseID string) (int, error)
	UpdateSettings(ctx context.Context, rec *model.StockRecord) error
	Summaries(ctx context.Context, warehouseID string) ([]dto.WarehouseSummary, error)

	// Counters. Both are a single atomic read-modify-write on the record.
	IncrementReserved(ctx context.Context, id string, delta int64) (*model.StockRecord, error)
	// ApplyAdjustment moves qty_on_hand by adj.QtyChange (and qty_reserved by
	// reservedDelta), fills QtyBefore/QtyAfter/Seq and appends adj, all in
	// one transaction.
	ApplyAdjustment(ctx context.Context, adj *model.Adjustment, reservedDelta int64) (*model.StockRecord, error)

	// Audit trail
	ListAdjustments(ctx context.Context, filters *dto.AdjustmentFilters) ([]model.Adjustment, int, error)
	AdjustmentsForRecord(ctx context.Context, stockRecordID string) ([]model.Adjustment, error)
}
