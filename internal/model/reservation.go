package model

import "time"

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationReleased  ReservationStatus = "released"
	ReservationConverted ReservationStatus = "converted"
	ReservationExpired   ReservationStatus = "expired"
)

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationReleased || s == ReservationConverted || s == ReservationExpired
}

func (s ReservationStatus) Valid() bool {
	return s == ReservationActive || s.IsTerminal()
}

// Reservation holds Quantity units of a stock record for a cart until
// ExpiresAt. It only ever moves qtyReserved; on-hand changes on conversion.
type Reservation struct {
	ID            string            `db:"id" json:"id"`
	StockRecordID string            `db:"stock_record_id" json:"stock_record_id"`
	CartRef       string            `db:"cart_ref" json:"cart_ref"`
	OrderRef      *string           `db:"order_ref" json:"order_ref,omitempty"`
	Quantity      int64             `db:"quantity" json:"quantity"`
	Status        ReservationStatus `db:"status" json:"status"`
	ExpiresAt     time.Time         `db:"expires_at" json:"expires_at"`
	ClosedAt      *time.Time        `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationActive && r.ExpiresAt.Before(now)
}
