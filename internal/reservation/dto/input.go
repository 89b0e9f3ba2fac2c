package dto

// ReserveInput holds Quantity of the variant (or SKU) named by Locator for a
// cart. WarehouseCode pins a warehouse instead of priority selection.
type ReserveInput struct {
	CartRef       string
	Locator       string
	Quantity      int64
	WarehouseCode string
}

type CheckoutItem struct {
	Locator       string
	Quantity      int64
	WarehouseCode string
}

type CheckoutInput struct {
	CartRef string
	Items   []CheckoutItem
}
