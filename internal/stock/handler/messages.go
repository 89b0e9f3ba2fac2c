package handler

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
)

type CreateStockRecordRequest struct {
	ProductRef        string `json:"product_ref" validate:"required"`
	VariantRef        string `json:"variant_ref" validate:"required"`
	WarehouseID       string `json:"warehouse_id" validate:"required"`
	SKU               string `json:"sku" validate:"required,max=64"`
	OpeningQty        int64  `json:"opening_qty" validate:"gte=0"`
	LowStockThreshold int64  `json:"low_stock_threshold" validate:"gte=0"`
	AllowBackorder    bool   `json:"allow_backorder"`
	ReorderPoint      int64  `json:"reorder_point" validate:"gte=0"`
	BackorderLimit    int64  `json:"backorder_limit" validate:"gte=0"`
}

type UpdateStockSettingsRequest struct {
	ID                string `json:"id" validate:"required"`
	LowStockThreshold *int64 `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	AllowBackorder    *bool  `json:"allow_backorder,omitempty"`
	ReorderPoint      *int64 `json:"reorder_point,omitempty" validate:"omitempty,gte=0"`
	BackorderLimit    *int64 `json:"backorder_limit,omitempty" validate:"omitempty,gte=0"`
}

type StockRecordIDRequest struct {
	ID string `json:"id" validate:"required"`
}

// StockRecordResponse flattens the derived numbers next to the record.
type StockRecordResponse struct {
	Record       *model.StockRecord `json:"record"`
	Available    int64              `json:"available"`
	Status       model.StockStatus  `json:"status"`
	NeedsReorder bool               `json:"needs_reorder"`
}

type ListStockRequest struct {
	WarehouseID string `json:"warehouse_id"`
	SKU         string `json:"sku"`
	VariantRef  string `json:"variant_ref"`
	ProductRef  string `json:"product_ref"`
	Status      string `json:"status" validate:"omitempty,oneof=in_stock low_stock out_of_stock"`
	Page        int    `json:"page" validate:"gte=0"`
	PageSize    int    `json:"page_size" validate:"gte=0,lte=500"`
}

type ListStockResponse struct {
	Records []StockRecordResponse `json:"records"`
	Total   int                   `json:"total"`
}

type GetAvailabilityRequest struct {
	Locator       string `json:"locator" validate:"required"`
	WarehouseCode string `json:"warehouse_code"`
}

type AdjustStockRequest struct {
	StockRecordID string `json:"stock_record_id" validate:"required_without=SKU"`
	SKU           string `json:"sku" validate:"required_without=StockRecordID"`
	WarehouseCode string `json:"warehouse_code" validate:"required_with=SKU"`
	Type          string `json:"type" validate:"required,oneof=restock sale return damage correction"`
	QtyChange     int64  `json:"qty_change" validate:"ne=0"`
	Reason        string `json:"reason" validate:"required"`
	ReferenceType string `json:"reference_type" validate:"omitempty,oneof=order return manual system"`
	ReferenceID   string `json:"reference_id"`
}

type AdjustmentResponse struct {
	Adjustment *model.Adjustment `json:"adjustment"`
}

type ListAdjustmentsRequest struct {
	StockRecordID string     `json:"stock_record_id"`
	Type          string     `json:"type" validate:"omitempty,oneof=restock sale return damage correction"`
	ReferenceType string     `json:"reference_type" validate:"omitempty,oneof=order return manual system"`
	ReferenceID   string     `json:"reference_id"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Page          int        `json:"page" validate:"gte=0"`
	PageSize      int        `json:"page_size" validate:"gte=0,lte=500"`
}

type ListAdjustmentsResponse struct {
	Adjustments []model.Adjustment `json:"adjustments"`
	Total       int                `json:"total"`
}

type BulkAdjustLine struct {
	SKU           string `json:"sku" validate:"required"`
	WarehouseCode string `json:"warehouse_code" validate:"required"`
	QtyChange     int64  `json:"qty_change"`
	Reason        string `json:"reason"`
}

type BulkAdjustRequest struct {
	Rows []BulkAdjustLine `json:"rows" validate:"required,min=1,max=5000,dive"`
}

type DashboardRequest struct {
	WarehouseCode string `json:"warehouse_code"`
}

type ReplayResponse struct {
	Report *dto.ReplayReport `json:"report"`
	Error  string            `json:"error,omitempty"`
}
