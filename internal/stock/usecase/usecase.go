package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("omnipos-inventory-service/stock")

const defaultBulkReason = "bulk adjustment"

type stockUseCase struct {
	store    *store.Store
	cache    stock.AvailabilityCache
	events   stock.EventPublisher
	cacheTTL time.Duration
	logger   logger.ZapLogger
	now      func() time.Time
}

// NewStockUseCase wires the ledger. cache and events may be nil.
func NewStockUseCase(s *store.Store, cache stock.AvailabilityCache, events stock.EventPublisher, cacheTTL time.Duration, log logger.ZapLogger) stock.UseCase {
	return &stockUseCase{
		store:    s,
		cache:    cache,
		events:   events,
		cacheTTL: cacheTTL,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *stockUseCase) CreateStockRecord(ctx context.Context, input *dto.CreateStockRecordInput) (*model.StockRecord, error) {
	sku := strings.TrimSpace(input.SKU)
	switch {
	case input.ProductRef == "":
		return nil, apperr.Invalid("product_ref is required")
	case input.VariantRef == "":
		return nil, apperr.Invalid("variant_ref is required")
	case input.WarehouseID == "":
		return nil, apperr.Invalid("warehouse_id is required")
	case sku == "":
		return nil, apperr.Invalid("sku is required")
	case input.OpeningQty < 0:
		return nil, apperr.Invalid("opening quantity must not be negative")
	case input.LowStockThreshold < 0 || input.ReorderPoint < 0 || input.BackorderLimit < 0:
		return nil, apperr.Invalid("thresholds and limits must not be negative")
	}

	now := uc.now()
	rec := &model.StockRecord{
		ID:                uuid.New().String(),
		ProductRef:        input.ProductRef,
		VariantRef:        input.VariantRef,
		WarehouseID:       input.WarehouseID,
		SKU:               sku,
		LowStockThreshold: input.LowStockThreshold,
		AllowBackorder:    input.AllowBackorder,
		ReorderPoint:      input.ReorderPoint,
		BackorderLimit:    input.BackorderLimit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		w, err := tx.Warehouses.FindByIDForShare(ctx, input.WarehouseID)
		if err != nil {
			return err
		}
		if w == nil {
			return apperr.NotFound("warehouse", input.WarehouseID)
		}

		existing, err := tx.Stock.FindByIdentity(ctx, input.ProductRef, input.VariantRef, input.WarehouseID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("stock record for %s/%s in %s: %w", input.ProductRef, input.VariantRef, w.Code, apperr.ErrAlreadyExists)
		}
		existing, err = tx.Stock.FindBySKU(ctx, sku, input.WarehouseID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("sku %s in %s: %w", sku, w.Code, apperr.ErrAlreadyExists)
		}

		if err := tx.Stock.Create(ctx, rec); err != nil {
			return err
		}

		// The opening balance goes through the trail so replay starts at 0.
		if input.OpeningQty > 0 {
			adj := uc.newAdjustment(rec.ID, model.AdjustmentRestock, input.OpeningQty, "opening balance",
				model.ReferenceSystem, "", input.Actor)
			updated, err := tx.Stock.ApplyAdjustment(ctx, adj, 0)
			if err != nil {
				return err
			}
			rec = updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, rec)
	return rec, nil
}

func (uc *stockUseCase) UpdateStockSettings(ctx context.Context, input *dto.UpdateStockSettingsInput) (*model.StockRecord, error) {
	rec, err := uc.GetStockRecord(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.LowStockThreshold != nil {
		rec.LowStockThreshold = *input.LowStockThreshold
	}
	if input.AllowBackorder != nil {
		rec.AllowBackorder = *input.AllowBackorder
	}
	if input.ReorderPoint != nil {
		rec.ReorderPoint = *input.ReorderPoint
	}
	if input.BackorderLimit != nil {
		rec.BackorderLimit = *input.BackorderLimit
	}
	if rec.LowStockThreshold < 0 || rec.ReorderPoint < 0 || rec.BackorderLimit < 0 {
		return nil, apperr.Invalid("thresholds and limits must not be negative")
	}
	rec.UpdatedAt = uc.now()

	if err := uc.store.Stock.UpdateSettings(ctx, rec); err != nil {
		return nil, err
	}

	uc.invalidate(ctx, rec)
	return rec, nil
}

func (uc *stockUseCase) GetStockRecord(ctx context.Context, id string) (*model.StockRecord, error) {
	rec, err := uc.store.Stock.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("stock record", id)
	}
	return rec, nil
}

func (uc *stockUseCase) ListStock(ctx context.Context, filters *dto.StockFilters) ([]model.StockRecord, int, error) {
	if filters == nil {
		filters = &dto.StockFilters{}
	}
	return uc.store.Stock.FindAll(ctx, filters)
}

func (uc *stockUseCase) GetAvailability(ctx context.Context, query *dto.AvailabilityQuery) (*dto.Availability, error) {
	locator := strings.TrimSpace(query.Locator)
	if locator == "" {
		return nil, apperr.Invalid("sku or variant_ref is required")
	}

	// Only the cross-warehouse view is cached; it is what checkout polls.
	cacheable := uc.cache != nil && query.WarehouseCode == ""
	var stamp stock.AvailabilityStamp
	if cacheable {
		var err error
		stamp, err = stock.StampAvailability(ctx, uc.cache, locator)
		if err != nil {
			uc.logger.Warn("availability cache read failed", zap.String("locator", locator), zap.Error(err))
			cacheable = false
		}
	}
	if cacheable {
		cached, hit, err := stock.LoadAvailability(ctx, uc.cache, locator, stamp)
		if err != nil {
			uc.logger.Warn("availability cache read failed", zap.String("locator", locator), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	records, err := uc.store.Stock.FindByLocator(ctx, locator)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperr.NotFound("stock", locator)
	}

	warehouses, err := uc.store.Warehouses.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if query.WarehouseCode != "" {
		w, err := uc.store.Warehouses.FindByCode(ctx, query.WarehouseCode)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, apperr.NotFound("warehouse", model.NormalizeCode(query.WarehouseCode))
		}
		if !w.IsActive {
			return nil, fmt.Errorf("warehouse %s: %w", w.Code, apperr.ErrWarehouseInactive)
		}
		warehouses = []model.Warehouse{*w}
	}

	result := aggregate(locator, records, warehouses)
	if query.WarehouseCode != "" && len(result.Warehouses) == 0 {
		return nil, apperr.NotFound("stock", locator+"@"+model.NormalizeCode(query.WarehouseCode))
	}

	if cacheable {
		if err := stock.StoreAvailability(ctx, uc.cache, locator, stamp, result, uc.cacheTTL); err != nil {
			uc.logger.Warn("availability cache write failed", zap.String("locator", locator), zap.Error(err))
		}
	}
	return result, nil
}

// aggregate sums records over the given (active) warehouses in their order.
// Records in any other warehouse are ignored.
func aggregate(locator string, records []model.StockRecord, warehouses []model.Warehouse) *dto.Availability {
	result := &dto.Availability{
		Locator:    locator,
		Warehouses: []dto.WarehouseAvailability{},
	}

	var threshold int64
	for _, w := range warehouses {
		for i := range records {
			rec := &records[i]
			if rec.WarehouseID != w.ID {
				continue
			}
			result.OnHand += rec.QtyOnHand
			result.Reserved += rec.QtyReserved
			result.Available += rec.QtyAvailable()
			if rec.AllowBackorder {
				result.AllowBackorder = true
			}
			if rec.LowStockThreshold > threshold {
				threshold = rec.LowStockThreshold
			}
			result.Warehouses = append(result.Warehouses, dto.WarehouseAvailability{
				WarehouseID:   w.ID,
				WarehouseCode: w.Code,
				StockRecordID: rec.ID,
				SKU:           rec.SKU,
				OnHand:        rec.QtyOnHand,
				Reserved:      rec.QtyReserved,
				Available:     rec.QtyAvailable(),
				Status:        rec.Status(),
			})
		}
	}
	result.Status = model.StatusFor(result.Available, threshold)
	return result
}

func (uc *stockUseCase) ApplyAdjustment(ctx context.Context, input *dto.AdjustStockInput) (*model.Adjustment, error) {
	ctx, span := tracer.Start(ctx, "stock.ApplyAdjustment")
	defer span.End()
	span.SetAttributes(
		attribute.String("adjustment.type", string(input.Type)),
		attribute.Int64("adjustment.qty_change", input.QtyChange),
	)

	adj, err := uc.applyAdjustment(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("stock_record.id", adj.StockRecordID))
	return adj, nil
}

func (uc *stockUseCase) applyAdjustment(ctx context.Context, input *dto.AdjustStockInput) (*model.Adjustment, error) {
	if err := input.Type.CheckSign(input.QtyChange); err != nil {
		return nil, err
	}
	refType := input.ReferenceType
	if refType == "" {
		refType = model.ReferenceManual
	}
	if !refType.Valid() {
		return nil, apperr.Invalid("unknown reference type %q", refType)
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperr.Invalid("reason is required")
	}

	rec, w, err := uc.resolve(ctx, input.StockRecordID, input.SKU, input.WarehouseCode)
	if err != nil {
		return nil, err
	}

	adj := uc.newAdjustment(rec.ID, input.Type, input.QtyChange, reason, refType, input.ReferenceID, input.Actor)
	updated, err := uc.store.Stock.ApplyAdjustment(ctx, adj, 0)
	if err != nil {
		var insufficient *apperr.InsufficientStockError
		if errors.As(err, &insufficient) && w != nil {
			insufficient.WarehouseCode = w.Code
		}
		return nil, err
	}

	uc.logger.Info("stock adjusted",
		zap.String("stock_record_id", updated.ID),
		zap.String("sku", updated.SKU),
		zap.String("type", string(adj.Type)),
		zap.Int64("qty_change", adj.QtyChange),
		zap.Int64("qty_after", adj.QtyAfter),
	)

	uc.invalidate(ctx, updated)
	uc.publishStatus(ctx, stock.StatusChange(updated, adj.QtyChange, 0, adj.CreatedAt))
	return adj, nil
}

// resolve finds a record by id, or by sku within a warehouse code. The
// warehouse is returned when it had to be looked up.
func (uc *stockUseCase) resolve(ctx context.Context, id, sku, warehouseCode string) (*model.StockRecord, *model.Warehouse, error) {
	if id != "" {
		rec, err := uc.GetStockRecord(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		w, err := uc.store.Warehouses.FindByID(ctx, rec.WarehouseID)
		return rec, w, err
	}

	sku = strings.TrimSpace(sku)
	if sku == "" || strings.TrimSpace(warehouseCode) == "" {
		return nil, nil, apperr.Invalid("stock_record_id or sku with warehouse_code is required")
	}
	w, err := uc.store.Warehouses.FindByCode(ctx, warehouseCode)
	if err != nil {
		return nil, nil, err
	}
	if w == nil {
		return nil, nil, apperr.NotFound("warehouse", model.NormalizeCode(warehouseCode))
	}
	rec, err := uc.store.Stock.FindBySKU(ctx, sku, w.ID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, apperr.NotFound("stock record", sku+"@"+w.Code)
	}
	return rec, w, nil
}

func (uc *stockUseCase) newAdjustment(recordID string, typ model.AdjustmentType, change int64, reason string, refType model.ReferenceType, refID, actor string) *model.Adjustment {
	adj := &model.Adjustment{
		ID:            uuid.New().String(),
		StockRecordID: recordID,
		Type:          typ,
		QtyChange:     change,
		Reason:        reason,
		ReferenceType: refType,
		CreatedAt:     uc.now(),
	}
	if refID != "" {
		adj.ReferenceID = &refID
	}
	if actor != "" {
		adj.Actor = &actor
	}
	return adj
}

func (uc *stockUseCase) IncrementReserved(ctx context.Context, stockRecordID string, delta int64) (*model.StockRecord, error) {
	if delta == 0 {
		return uc.GetStockRecord(ctx, stockRecordID)
	}
	rec, err := uc.store.Stock.IncrementReserved(ctx, stockRecordID, delta)
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, rec)
	return rec, nil
}

func (uc *stockUseCase) ListAdjustments(ctx context.Context, filters *dto.AdjustmentFilters) ([]model.Adjustment, int, error) {
	if filters == nil {
		filters = &dto.AdjustmentFilters{}
	}
	return uc.store.Stock.ListAdjustments(ctx, filters)
}

// VerifyReplay walks the trail oldest first. On a broken chain it returns
// the partial report together with ErrInvariantViolation.
func (uc *stockUseCase) VerifyReplay(ctx context.Context, stockRecordID string) (*dto.ReplayReport, error) {
	rec, err := uc.GetStockRecord(ctx, stockRecordID)
	if err != nil {
		return nil, err
	}
	trail, err := uc.store.Stock.AdjustmentsForRecord(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	report := &dto.ReplayReport{
		StockRecordID: rec.ID,
		Adjustments:   len(trail),
		CurrentQty:    rec.QtyOnHand,
	}
	if len(trail) > 0 {
		report.StartingQty = trail[0].QtyBefore
	}

	qty := report.StartingQty
	for i := range trail {
		a := &trail[i]
		if a.QtyBefore != qty {
			report.ReplayedQty = qty
			return report, apperr.Invariant("adjustment %s: qty_before %d, expected %d", a.ID, a.QtyBefore, qty)
		}
		if err := a.Verify(); err != nil {
			report.ReplayedQty = qty
			return report, err
		}
		qty = a.QtyAfter
	}

	report.ReplayedQty = qty
	report.Consistent = qty == rec.QtyOnHand
	if !report.Consistent {
		return report, apperr.Invariant("stock %s: trail replays to %d, record holds %d", rec.ID, qty, rec.QtyOnHand)
	}
	return report, nil
}

// BulkAdjust applies rows one after another as independent corrections; a
// failing row does not stop the rest.
func (uc *stockUseCase) BulkAdjust(ctx context.Context, rows []dto.BulkAdjustRow, actor string) (*dto.BulkAdjustResult, error) {
	if len(rows) == 0 {
		return nil, apperr.Invalid("no rows to apply")
	}

	result := &dto.BulkAdjustResult{Rows: make([]dto.BulkRowResult, 0, len(rows))}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		reason := strings.TrimSpace(row.Reason)
		if reason == "" {
			reason = defaultBulkReason
		}
		rowResult := dto.BulkRowResult{Row: i + 1, SKU: row.SKU, WarehouseCode: row.WarehouseCode}

		adj, err := uc.applyAdjustment(ctx, &dto.AdjustStockInput{
			SKU:           row.SKU,
			WarehouseCode: row.WarehouseCode,
			Type:          model.AdjustmentCorrection,
			QtyChange:     row.QtyChange,
			Reason:        reason,
			ReferenceType: model.ReferenceManual,
			Actor:         actor,
		})
		if err != nil {
			rowResult.Error = err.Error()
			result.Failed++
		} else {
			rowResult.OK = true
			rowResult.Adjustment = adj
			result.Succeeded++
		}
		result.Rows = append(result.Rows, rowResult)
	}

	uc.logger.Info("bulk adjustment finished",
		zap.Int("rows", len(rows)), zap.Int("succeeded", result.Succeeded), zap.Int("failed", result.Failed))
	return result, nil
}

// Dashboard reports per-warehouse counters. Totals cover active
// warehouses only, matching what checkout can see.
func (uc *stockUseCase) Dashboard(ctx context.Context, warehouseCode string) (*dto.Dashboard, error) {
	warehouseID := ""
	if warehouseCode != "" {
		w, err := uc.store.Warehouses.FindByCode(ctx, warehouseCode)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, apperr.NotFound("warehouse", model.NormalizeCode(warehouseCode))
		}
		warehouseID = w.ID
	}

	summaries, err := uc.store.Stock.Summaries(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	d := &dto.Dashboard{Warehouses: summaries}
	if d.Warehouses == nil {
		d.Warehouses = []dto.WarehouseSummary{}
	}
	d.Totals.IsActive = true
	for _, s := range summaries {
		if !s.IsActive {
			continue
		}
		d.Totals.Records += s.Records
		d.Totals.OnHand += s.OnHand
		d.Totals.Reserved += s.Reserved
		d.Totals.Available += s.Available
		d.Totals.InStock += s.InStock
		d.Totals.LowStock += s.LowStock
		d.Totals.OutOfStock += s.OutOfStock
		d.Totals.NeedsReorder += s.NeedsReorder
	}
	return d, nil
}

func (uc *stockUseCase) invalidate(ctx context.Context, rec *model.StockRecord) {
	if err := stock.InvalidateAvailability(ctx, uc.cache, rec); err != nil {
		uc.logger.Warn("failed to invalidate availability cache", zap.String("sku", rec.SKU), zap.Error(err))
	}
}

func (uc *stockUseCase) publishStatus(ctx context.Context, event *stock.StatusEvent) {
	if event == nil || uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, event.StockRecordID, event); err != nil {
		uc.logger.Error("failed to publish stock status event",
			zap.String("stock_record_id", event.StockRecordID), zap.Error(err))
	}
}
