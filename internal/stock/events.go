package stock

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

const EventStockStatusChanged = "StockStatusChanged"

// StatusEvent is published when an adjustment moves a record between
// in_stock, low_stock and out_of_stock.
type StatusEvent struct {
	EventType     string            `json:"event_type"`
	StockRecordID string            `json:"stock_record_id"`
	SKU           string            `json:"sku"`
	WarehouseID   string            `json:"warehouse_id"`
	Previous      model.StockStatus `json:"previous_status"`
	Current       model.StockStatus `json:"current_status"`
	Available     int64             `json:"available"`
	NeedsReorder  bool              `json:"needs_reorder"`
	Timestamp     time.Time         `json:"timestamp"`
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// StatusChange builds the event for a record that was just written by adj
// together with reservedDelta. It returns nil when the status is unchanged.
func StatusChange(after *model.StockRecord, onHandDelta, reservedDelta int64, at time.Time) *StatusEvent {
	before := *after
	before.QtyOnHand -= onHandDelta
	before.QtyReserved -= reservedDelta
	if before.Status() == after.Status() {
		return nil
	}
	return &StatusEvent{
		EventType:     EventStockStatusChanged,
		StockRecordID: after.ID,
		SKU:           after.SKU,
		WarehouseID:   after.WarehouseID,
		Previous:      before.Status(),
		Current:       after.Status(),
		Available:     after.QtyAvailable(),
		NeedsReorder:  after.NeedsReorder(),
		Timestamp:     at,
	}
}
