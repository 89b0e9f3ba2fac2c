package handler

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type CreateWarehouseRequest struct {
	Code      string        `json:"code" validate:"required,max=32"`
	Name      string        `json:"name" validate:"required,max=200"`
	Address   model.Address `json:"address"`
	Priority  int           `json:"priority" validate:"gte=0"`
	IsDefault bool          `json:"is_default"`
	Inactive  bool          `json:"inactive"`
}

// GetWarehouseRequest looks a warehouse up by ID, or by Code when ID is empty.
type GetWarehouseRequest struct {
	ID   string `json:"id" validate:"required_without=Code"`
	Code string `json:"code"`
}

type ListWarehousesRequest struct {
	IsActive *bool  `json:"is_active,omitempty"`
	Search   string `json:"search"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" validate:"gte=0,lte=500"`
}

type ListWarehousesResponse struct {
	Warehouses []model.Warehouse `json:"warehouses"`
	Total      int               `json:"total"`
}

type UpdateWarehouseRequest struct {
	ID       string         `json:"id" validate:"required"`
	Name     *string        `json:"name,omitempty"`
	Address  *model.Address `json:"address,omitempty"`
	Priority *int           `json:"priority,omitempty" validate:"omitempty,gte=0"`
}

type WarehouseIDRequest struct {
	ID string `json:"id" validate:"required"`
}

type WarehouseResponse struct {
	Warehouse *model.Warehouse `json:"warehouse"`
}

type Empty struct{}
