package repository

import (
	"context"
	"sort"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
)

type MemoryRepository struct {
	conn *memory.Conn
}

func NewMemoryRepository(conn *memory.Conn) *MemoryRepository {
	return &MemoryRepository{conn: conn}
}

func (r *MemoryRepository) Create(_ context.Context, rec *model.StockRecord) error {
	return r.conn.Do(func(s *memory.State) error {
		for _, existing := range s.StockRecords {
			if existing.WarehouseID != rec.WarehouseID {
				continue
			}
			if existing.SKU == rec.SKU ||
				(existing.ProductRef == rec.ProductRef && existing.VariantRef == rec.VariantRef) {
				return memory.ErrUniqueViolation
			}
		}
		s.StockRecords[rec.ID] = *rec
		return nil
	})
}

func (r *MemoryRepository) find(match func(rec *model.StockRecord) bool) (*model.StockRecord, error) {
	var found *model.StockRecord
	err := r.conn.Do(func(s *memory.State) error {
		for _, rec := range s.StockRecords {
			rec := rec
			if match(&rec) {
				found = &rec
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*model.StockRecord, error) {
	return r.find(func(rec *model.StockRecord) bool { return rec.ID == id })
}

func (r *MemoryRepository) FindBySKU(_ context.Context, sku, warehouseID string) (*model.StockRecord, error) {
	return r.find(func(rec *model.StockRecord) bool {
		return rec.SKU == sku && rec.WarehouseID == warehouseID
	})
}

func (r *MemoryRepository) FindByIdentity(_ context.Context, productRef, variantRef, warehouseID string) (*model.StockRecord, error) {
	return r.find(func(rec *model.StockRecord) bool {
		return rec.ProductRef == productRef && rec.VariantRef == variantRef && rec.WarehouseID == warehouseID
	})
}

func (r *MemoryRepository) FindByLocator(_ context.Context, locator string) ([]model.StockRecord, error) {
	var items []model.StockRecord
	err := r.conn.Do(func(s *memory.State) error {
		for _, rec := range s.StockRecords {
			if rec.SKU == locator || rec.VariantRef == locator {
				items = append(items, rec)
			}
		}
		return nil
	})
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, err
}

func (r *MemoryRepository) FindAll(_ context.Context, f *dto.StockFilters) ([]model.StockRecord, int, error) {
	var items []model.StockRecord
	err := r.conn.Do(func(s *memory.State) error {
		for _, rec := range s.StockRecords {
			if f.WarehouseID != "" && rec.WarehouseID != f.WarehouseID {
				continue
			}
			if f.SKU != "" && rec.SKU != f.SKU {
				continue
			}
			if f.VariantRef != "" && rec.VariantRef != f.VariantRef {
				continue
			}
			if f.ProductRef != "" && rec.ProductRef != f.ProductRef {
				continue
			}
			if f.Status != "" && rec.Status() != f.Status {
				continue
			}
			items = append(items, rec)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SKU != items[j].SKU {
			return items[i].SKU < items[j].SKU
		}
		return items[i].WarehouseID < items[j].WarehouseID
	})
	total := len(items)
	return memory.Page(items, f.Page, f.PageSize), total, nil
}

func (r *MemoryRepository) CountByWarehouse(_ context.Context, warehouseID string) (int, error) {
	n := 0
	err := r.conn.Do(func(s *memory.State) error {
		for _, rec := range s.StockRecords {
			if rec.WarehouseID == warehouseID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *MemoryRepository) UpdateSettings(_ context.Context, rec *model.StockRecord) error {
	return r.conn.Do(func(s *memory.State) error {
		cur, ok := s.StockRecords[rec.ID]
		if !ok {
			return nil
		}
		cur.LowStockThreshold = rec.LowStockThreshold
		cur.AllowBackorder = rec.AllowBackorder
		cur.ReorderPoint = rec.ReorderPoint
		cur.BackorderLimit = rec.BackorderLimit
		cur.UpdatedAt = rec.UpdatedAt
		s.StockRecords[rec.ID] = cur
		return nil
	})
}

func (r *MemoryRepository) Summaries(_ context.Context, warehouseID string) ([]dto.WarehouseSummary, error) {
	var out []dto.WarehouseSummary
	err := r.conn.Do(func(s *memory.State) error {
		var ws []model.Warehouse
		for _, w := range s.Warehouses {
			if warehouseID == "" || w.ID == warehouseID {
				ws = append(ws, w)
			}
		}
		sort.SliceStable(ws, func(i, j int) bool {
			if ws[i].Priority != ws[j].Priority {
				return ws[i].Priority < ws[j].Priority
			}
			return ws[i].Code < ws[j].Code
		})

		for _, w := range ws {
			sum := dto.WarehouseSummary{WarehouseID: w.ID, WarehouseCode: w.Code, IsActive: w.IsActive}
			for _, rec := range s.StockRecords {
				if rec.WarehouseID != w.ID {
					continue
				}
				sum.Records++
				sum.OnHand += rec.QtyOnHand
				sum.Reserved += rec.QtyReserved
				sum.Available += rec.QtyAvailable()
				switch rec.Status() {
				case model.StatusInStock:
					sum.InStock++
				case model.StatusLowStock:
					sum.LowStock++
				default:
					sum.OutOfStock++
				}
				if rec.NeedsReorder() {
					sum.NeedsReorder++
				}
			}
			out = append(out, sum)
		}
		return nil
	})
	return out, err
}

func (r *MemoryRepository) IncrementReserved(_ context.Context, id string, delta int64) (*model.StockRecord, error) {
	var updated *model.StockRecord
	err := r.conn.Do(func(s *memory.State) error {
		rec, ok := s.StockRecords[id]
		if !ok {
			return apperr.NotFound("stock record", id)
		}
		if err := rec.CheckReserve(delta); err != nil {
			return err
		}
		rec.QtyReserved += delta
		rec.UpdatedAt = memory.Now()
		s.StockRecords[id] = rec
		updated = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MemoryRepository) ApplyAdjustment(_ context.Context, adj *model.Adjustment, reservedDelta int64) (*model.StockRecord, error) {
	var updated *model.StockRecord
	err := r.conn.Do(func(s *memory.State) error {
		rec, ok := s.StockRecords[adj.StockRecordID]
		if !ok {
			return apperr.NotFound("stock record", adj.StockRecordID)
		}
		if err := rec.CheckMovement(adj.QtyChange, reservedDelta); err != nil {
			return err
		}

		adj.QtyBefore = rec.QtyOnHand
		adj.QtyAfter = rec.QtyOnHand + adj.QtyChange
		if err := adj.Verify(); err != nil {
			return err
		}
		s.AdjustmentSeq++
		adj.Seq = s.AdjustmentSeq
		s.Adjustments = append(s.Adjustments, *adj)

		rec.QtyOnHand = adj.QtyAfter
		rec.QtyReserved += reservedDelta
		rec.UpdatedAt = adj.CreatedAt
		s.StockRecords[rec.ID] = rec
		updated = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MemoryRepository) ListAdjustments(_ context.Context, f *dto.AdjustmentFilters) ([]model.Adjustment, int, error) {
	var items []model.Adjustment
	err := r.conn.Do(func(s *memory.State) error {
		// newest first, matching ORDER BY seq DESC
		for i := len(s.Adjustments) - 1; i >= 0; i-- {
			a := s.Adjustments[i]
			if f.StockRecordID != "" && a.StockRecordID != f.StockRecordID {
				continue
			}
			if f.Type != "" && a.Type != f.Type {
				continue
			}
			if f.ReferenceType != "" && a.ReferenceType != f.ReferenceType {
				continue
			}
			if f.ReferenceID != "" && (a.ReferenceID == nil || *a.ReferenceID != f.ReferenceID) {
				continue
			}
			if f.StartDate != nil && a.CreatedAt.Before(*f.StartDate) {
				continue
			}
			if f.EndDate != nil && !a.CreatedAt.Before(*f.EndDate) {
				continue
			}
			items = append(items, a)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	total := len(items)
	return memory.Page(items, f.Page, f.PageSize), total, nil
}

func (r *MemoryRepository) AdjustmentsForRecord(_ context.Context, stockRecordID string) ([]model.Adjustment, error) {
	var items []model.Adjustment
	err := r.conn.Do(func(s *memory.State) error {
		for _, a := range s.Adjustments {
			if a.StockRecordID == stockRecordID {
				items = append(items, a)
			}
		}
		return nil
	})
	return items, err
}
