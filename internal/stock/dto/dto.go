package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type StockFilters struct {
	WarehouseID string
	SKU         string
	VariantRef  string
	ProductRef  string
	Status      model.StockStatus // empty means any
	Page        int
	PageSize    int
}

type AdjustmentFilters struct {
	StockRecordID string
	Type          model.AdjustmentType
	ReferenceType model.ReferenceType
	ReferenceID   string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}

// AvailabilityQuery locates stock by SKU or variant reference; an empty
// WarehouseCode aggregates across every active warehouse.
type AvailabilityQuery struct {
	Locator       string
	WarehouseCode string
}

type WarehouseAvailability struct {
	WarehouseID   string            `json:"warehouse_id"`
	WarehouseCode string            `json:"warehouse_code"`
	StockRecordID string            `json:"stock_record_id"`
	SKU           string            `json:"sku"`
	OnHand        int64             `json:"on_hand"`
	Reserved      int64             `json:"reserved"`
	Available     int64             `json:"available"`
	Status        model.StockStatus `json:"status"`
}

type Availability struct {
	Locator        string                  `json:"locator"`
	Available      int64                   `json:"available"`
	OnHand         int64                   `json:"on_hand"`
	Reserved       int64                   `json:"reserved"`
	Status         model.StockStatus       `json:"status"`
	AllowBackorder bool                    `json:"allow_backorder"`
	Warehouses     []WarehouseAvailability `json:"warehouses"`
}

type ReplayReport struct {
	StockRecordID string `json:"stock_record_id"`
	Adjustments   int    `json:"adjustments"`
	StartingQty   int64  `json:"starting_qty"`
	ReplayedQty   int64  `json:"replayed_qty"`
	CurrentQty    int64  `json:"current_qty"`
	Consistent    bool   `json:"consistent"`
}

type BulkRowResult struct {
	Row           int               `json:"row"`
	SKU           string            `json:"sku"`
	WarehouseCode string            `json:"warehouse_code"`
	OK            bool              `json:"ok"`
	Adjustment    *model.Adjustment `json:"adjustment,omitempty"`
	Error         string            `json:"error,omitempty"`
}

type BulkAdjustResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Rows      []BulkRowResult `json:"rows"`
}

type WarehouseSummary struct {
	WarehouseID   string `json:"warehouse_id" db:"warehouse_id"`
	WarehouseCode string `json:"warehouse_code" db:"warehouse_code"`
	IsActive      bool   `json:"is_active" db:"is_active"`
	Records       int    `json:"records" db:"records"`
	OnHand        int64  `json:"on_hand" db:"on_hand"`
	Reserved      int64  `json:"reserved" db:"reserved"`
	Available     int64  `json:"available" db:"available"`
	InStock       int    `json:"in_stock" db:"in_stock"`
	LowStock      int    `json:"low_stock" db:"low_stock"`
	OutOfStock    int    `json:"out_of_stock" db:"out_of_stock"`
	NeedsReorder  int    `json:"needs_reorder" db:"needs_reorder"`
}

type Dashboard struct {
	Totals     WarehouseSummary   `json:"totals"`
	Warehouses []WarehouseSummary `json:"warehouses"`
}
