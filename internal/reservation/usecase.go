package reservation

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
)

type UseCase interface {
	Reserve(ctx context.Context, input *dto.ReserveInput) (*model.Reservation, error)
	ReserveForCheckout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error)
	Convert(ctx context.Context, cartRef, orderRef string) ([]model.Reservation, error)
	Release(ctx context.Context, id string) (*model.Reservation, error)
	ReleaseAllForCart(ctx context.Context, cartRef string) (int, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, filters *dto.ReservationFilters) ([]model.Reservation, int, error)
	ExpireStale(ctx context.Context) (*dto.SweepReport, error)
}
