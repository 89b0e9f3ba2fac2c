package reservation

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
)

type Repository interface {
	Create(ctx context.Context, r *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindActiveByCart(ctx context.Context, cartRef string) ([]model.Reservation, error)
	FindActiveByCartAndRecord(ctx context.Context, cartRef, stockRecordID string) (*model.Reservation, error)
	// FindExpired returns active reservations with expires_at before now,
	// oldest first.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
	FindAll(ctx context.Context, filters *dto.ReservationFilters) ([]model.Reservation, int, error)
	CountActiveByWarehouse(ctx context.Context, warehouseID string) (int, error)
	SumActiveByRecord(ctx context.Context, stockRecordID string) (int64, error)

	// Transition moves an active reservation to a terminal status. It
	// reports false, without error, when the reservation is no longer active.
	Transition(ctx context.Context, id string, to model.ReservationStatus, orderRef *string, at time.Time) (bool, error)
	// UpdateActive rewrites quantity and expiry of a still-active reservation.
	UpdateActive(ctx context.Context, id string, quantity int64, expiresAt, at time.Time) (bool, error)
}
