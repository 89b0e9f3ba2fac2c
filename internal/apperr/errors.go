package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrWarehouseInactive     = errors.New("warehouse is inactive")
	ErrInsufficientQuantity  = errors.New("insufficient quantity")
	ErrNotActive             = errors.New("reservation is not active")
	ErrLastActiveWarehouse   = errors.New("cannot deactivate the last active warehouse")
	ErrHasActiveReservations = errors.New("warehouse has active reservations")
	ErrInvariantViolation    = errors.New("inventory invariant violated")

	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyExists    = errors.New("already exists")
	ErrDefaultWarehouse = errors.New("cannot delete the default warehouse")
	ErrHasStockRecords  = errors.New("warehouse still holds stock records")
)

// InsufficientStockError reports what a caller asked for and what could
// actually be held at the time of the attempt.
type InsufficientStockError struct {
	StockRecordID string
	SKU           string
	WarehouseCode string
	Requested     int64
	Available     int64
}

func (e *InsufficientStockError) Error() string {
	loc := e.SKU
	if e.WarehouseCode != "" {
		loc += "@" + e.WarehouseCode
	}
	return fmt.Sprintf("insufficient quantity for %s: requested %d, available %d", loc, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientQuantity }

// Invalid wraps ErrInvalidInput with a field-level message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the kind of entity that was missing.
func NotFound(kind, ref string) error {
	return fmt.Errorf("%s %q: %w", kind, ref, ErrNotFound)
}

// Invariant wraps ErrInvariantViolation. Seeing one of these means a bug.
func Invariant(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
