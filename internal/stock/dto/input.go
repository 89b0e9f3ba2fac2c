package dto

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type CreateStockRecordInput struct {
	ProductRef        string
	VariantRef        string
	WarehouseID       string
	SKU               string
	OpeningQty        int64
	LowStockThreshold int64
	AllowBackorder    bool
	ReorderPoint      int64
	BackorderLimit    int64
	Actor             string
}

type UpdateStockSettingsInput struct {
	ID                string
	LowStockThreshold *int64
	AllowBackorder    *bool
	ReorderPoint      *int64
	BackorderLimit    *int64
}

// AdjustStockInput targets a record by ID, or by SKU + warehouse code.
type AdjustStockInput struct {
	StockRecordID string
	SKU           string
	WarehouseCode string
	Type          model.AdjustmentType
	QtyChange     int64
	Reason        string
	ReferenceType model.ReferenceType
	ReferenceID   string
	Actor         string
}

// BulkAdjustRow is one already-parsed line of an operator upload.
type BulkAdjustRow struct {
	SKU           string
	WarehouseCode string
	QtyChange     int64
	Reason        string
}
