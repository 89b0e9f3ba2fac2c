package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type ReservationFilters struct {
	CartRef       string
	OrderRef      string
	StockRecordID string
	Status        model.ReservationStatus
	Page          int
	PageSize      int
}

// ItemFailure tells the cart which line could not be held and how much of
// it was available at the time.
type ItemFailure struct {
	Index         int    `json:"index"`
	Locator       string `json:"locator"`
	SKU           string `json:"sku,omitempty"`
	WarehouseCode string `json:"warehouse_code,omitempty"`
	Requested     int64  `json:"requested"`
	Available     int64  `json:"available"`
	Reason        string `json:"reason"`
}

type CheckoutResult struct {
	Reservations []model.Reservation `json:"reservations"`
	AllReserved  bool                `json:"all_reserved"`
	Failures     []ItemFailure       `json:"failures,omitempty"`
	// RollbackErrors lists compensations that could not be applied; those
	// holds are left to expire on their own.
	RollbackErrors []string `json:"rollback_errors,omitempty"`
}

type SweepFailure struct {
	ReservationID string `json:"reservation_id"`
	Error         string `json:"error"`
}

type SweepReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Scanned    int            `json:"scanned"`
	Expired    int            `json:"expired"`
	Skipped    int            `json:"skipped"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}
