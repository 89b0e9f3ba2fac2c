package dto

import "github.com/fekuna/omnipos-inventory-service/internal/model"

type CreateWarehouseInput struct {
	Code      string
	Name      string
	Address   model.Address
	Priority  int
	IsDefault bool
	Inactive  bool
}

type UpdateWarehouseInput struct {
	ID       string
	Name     *string
	Address  *model.Address
	Priority *int
}
