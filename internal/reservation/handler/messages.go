package handler

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type ReserveRequest struct {
	CartRef       string `json:"cart_ref" validate:"required"`
	Locator       string `json:"locator" validate:"required"`
	Quantity      int64  `json:"quantity" validate:"gt=0"`
	WarehouseCode string `json:"warehouse_code"`
}

type ReservationResponse struct {
	Reservation *model.Reservation `json:"reservation"`
}

type CheckoutLine struct {
	Locator       string `json:"locator" validate:"required"`
	Quantity      int64  `json:"quantity" validate:"gt=0"`
	WarehouseCode string `json:"warehouse_code"`
}

type ReserveForCheckoutRequest struct {
	CartRef string         `json:"cart_ref" validate:"required"`
	Items   []CheckoutLine `json:"items" validate:"required,min=1,dive"`
}

type ConvertRequest struct {
	CartRef  string `json:"cart_ref" validate:"required"`
	OrderRef string `json:"order_ref" validate:"required"`
}

type ReservationsResponse struct {
	Reservations []model.Reservation `json:"reservations"`
	Total        int                 `json:"total"`
}

type ReservationIDRequest struct {
	ID string `json:"id" validate:"required"`
}

type CartRequest struct {
	CartRef string `json:"cart_ref" validate:"required"`
}

type ReleaseAllResponse struct {
	Released int `json:"released"`
}

type ListReservationsRequest struct {
	CartRef       string `json:"cart_ref"`
	OrderRef      string `json:"order_ref"`
	StockRecordID string `json:"stock_record_id"`
	Status        string `json:"status" validate:"omitempty,oneof=active released converted expired"`
	Page          int    `json:"page" validate:"gte=0"`
	PageSize      int    `json:"page_size" validate:"gte=0,lte=500"`
}

type Empty struct{}
