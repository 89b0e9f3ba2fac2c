package model

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
)

type StockStatus string

const (
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusInStock    StockStatus = "in_stock"
)

// StockRecord is the on-hand / reserved pair for one variant in one warehouse.
type StockRecord struct {
	ID                string    `db:"id" json:"id"`
	ProductRef        string    `db:"product_ref" json:"product_ref"`
	VariantRef        string    `db:"variant_ref" json:"variant_ref"`
	WarehouseID       string    `db:"warehouse_id" json:"warehouse_id"`
	SKU               string    `db:"sku" json:"sku"`
	QtyOnHand         int64     `db:"qty_on_hand" json:"qty_on_hand"`
	QtyReserved       int64     `db:"qty_reserved" json:"qty_reserved"`
	LowStockThreshold int64     `db:"low_stock_threshold" json:"low_stock_threshold"`
	AllowBackorder    bool      `db:"allow_backorder" json:"allow_backorder"`
	ReorderPoint      int64     `db:"reorder_point" json:"reorder_point"`
	BackorderLimit    int64     `db:"backorder_limit" json:"backorder_limit"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// QtyAvailable is never stored.
func (s *StockRecord) QtyAvailable() int64 {
	if v := s.QtyOnHand - s.QtyReserved; v > 0 {
		return v
	}
	return 0
}

func (s *StockRecord) Status() StockStatus {
	return StatusFor(s.QtyAvailable(), s.LowStockThreshold)
}

func (s *StockRecord) NeedsReorder() bool {
	return s.ReorderPoint > 0 && s.QtyAvailable() <= s.ReorderPoint
}

// BackorderAllowance is how far qtyReserved may run past qtyOnHand.
func (s *StockRecord) BackorderAllowance() int64 {
	if s.AllowBackorder && s.BackorderLimit > 0 {
		return s.BackorderLimit
	}
	return 0
}

// Holdable is the largest additional quantity that could be reserved now.
func (s *StockRecord) Holdable() int64 {
	if v := s.QtyOnHand + s.BackorderAllowance() - s.QtyReserved; v > 0 {
		return v
	}
	return 0
}

func StatusFor(available, lowStockThreshold int64) StockStatus {
	switch {
	case available <= 0:
		return StatusOutOfStock
	case available <= lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// CheckReserve validates moving qtyReserved by delta without mutating s.
func (s *StockRecord) CheckReserve(delta int64) error {
	next := s.QtyReserved + delta
	if next < 0 {
		return apperr.Invariant("stock %s: reserved would drop to %d", s.ID, next)
	}
	if delta > 0 && next-s.QtyOnHand > s.BackorderAllowance() {
		return &apperr.InsufficientStockError{
			StockRecordID: s.ID,
			SKU:           s.SKU,
			Requested:     delta,
			Available:     s.Holdable(),
		}
	}
	return nil
}

// CheckMovement validates an on-hand change together with the reserved
// change that accompanies it (non-zero only when a hold is converted).
func (s *StockRecord) CheckMovement(onHandDelta, reservedDelta int64) error {
	nextOnHand := s.QtyOnHand + onHandDelta
	nextReserved := s.QtyReserved + reservedDelta
	if nextReserved < 0 {
		return apperr.Invariant("stock %s: reserved would drop to %d", s.ID, nextReserved)
	}
	if nextOnHand < 0 || (onHandDelta < 0 && nextReserved-nextOnHand > s.BackorderAllowance()) {
		available := s.QtyOnHand
		if free := s.QtyOnHand + s.BackorderAllowance() - nextReserved; free < available {
			available = free
		}
		if available < 0 {
			available = 0
		}
		return &apperr.InsufficientStockError{
			StockRecordID: s.ID,
			SKU:           s.SKU,
			Requested:     -onHandDelta,
			Available:     available,
		}
	}
	return nil
}

type AdjustmentType string

const (
	AdjustmentRestock    AdjustmentType = "restock"
	AdjustmentSale       AdjustmentType = "sale"
	AdjustmentReturn     AdjustmentType = "return"
	AdjustmentDamage     AdjustmentType = "damage"
	AdjustmentCorrection AdjustmentType = "correction"
)

// CheckSign enforces the direction each adjustment type may move stock.
func (t AdjustmentType) CheckSign(change int64) error {
	switch t {
	case AdjustmentRestock, AdjustmentReturn:
		if change <= 0 {
			return apperr.Invalid("%s requires a positive quantity change", t)
		}
	case AdjustmentSale, AdjustmentDamage:
		if change >= 0 {
			return apperr.Invalid("%s requires a negative quantity change", t)
		}
	case AdjustmentCorrection:
		if change == 0 {
			return apperr.Invalid("correction requires a non-zero quantity change")
		}
	default:
		return apperr.Invalid("unknown adjustment type %q", t)
	}
	return nil
}

type ReferenceType string

const (
	ReferenceOrder  ReferenceType = "order"
	ReferenceReturn ReferenceType = "return"
	ReferenceManual ReferenceType = "manual"
	ReferenceSystem ReferenceType = "system"
)

func (r ReferenceType) Valid() bool {
	switch r {
	case ReferenceOrder, ReferenceReturn, ReferenceManual, ReferenceSystem:
		return true
	}
	return false
}

// Adjustment is an immutable line of the on-hand audit trail.
type Adjustment struct {
	ID            string         `db:"id" json:"id"`
	Seq           int64          `db:"seq" json:"seq"`
	StockRecordID string         `db:"stock_record_id" json:"stock_record_id"`
	Type          AdjustmentType `db:"type" json:"type"`
	QtyChange     int64          `db:"qty_change" json:"qty_change"`
	QtyBefore     int64          `db:"qty_before" json:"qty_before"`
	QtyAfter      int64          `db:"qty_after" json:"qty_after"`
	Reason        string         `db:"reason" json:"reason"`
	ReferenceType ReferenceType  `db:"reference_type" json:"reference_type"`
	ReferenceID   *string        `db:"reference_id" json:"reference_id,omitempty"`
	Actor         *string        `db:"actor" json:"actor,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

func (a *Adjustment) Verify() error {
	if a.QtyAfter != a.QtyBefore+a.QtyChange {
		return apperr.Invariant("adjustment %s: %d + %d != %d", a.ID, a.QtyBefore, a.QtyChange, a.QtyAfter)
	}
	if a.QtyAfter < 0 {
		return apperr.Invariant("adjustment %s: negative qty_after %d", a.ID, a.QtyAfter)
	}
	return nil
}
