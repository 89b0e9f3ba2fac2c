package dto

type WarehouseFilters struct {
	IsActive *bool
	Search   string // matches code or name
	Page     int
	PageSize int
}
