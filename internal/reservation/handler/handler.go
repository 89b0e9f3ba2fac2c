package handler

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/sweeper"
	"github.com/fekuna/omnipos-inventory-service/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "omnipos.inventory.v1.ReservationService"

// Sweeper runs one expiry pass on demand.
type Sweeper interface {
	RunOnce(ctx context.Context) (*dto.SweepReport, error)
}

type ReservationHandler struct {
	uc      reservation.UseCase
	sweeper Sweeper
	logger  logger.ZapLogger
}

func NewReservationHandler(uc reservation.UseCase, sweeper Sweeper, log logger.ZapLogger) *ReservationHandler {
	return &ReservationHandler{
		uc:      uc,
		sweeper: sweeper,
		logger:  log,
	}
}

func (h *ReservationHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			rpc.Unary(ServiceName, "Reserve", h.Reserve),
			rpc.Unary(ServiceName, "ReserveForCheckout", h.ReserveForCheckout),
			rpc.Unary(ServiceName, "Convert", h.Convert),
			rpc.Unary(ServiceName, "Release", h.Release),
			rpc.Unary(ServiceName, "ReleaseAllForCart", h.ReleaseAllForCart),
			rpc.Unary(ServiceName, "GetReservation", h.GetReservation),
			rpc.Unary(ServiceName, "ListReservations", h.ListReservations),
			rpc.Unary(ServiceName, "ExpireStale", h.ExpireStale),
		},
		Metadata: "omnipos/inventory/v1/reservation.json",
	}, h)
}

func (h *ReservationHandler) Reserve(ctx context.Context, req *ReserveRequest) (*ReservationResponse, error) {
	res, err := h.uc.Reserve(ctx, &dto.ReserveInput{
		CartRef:       req.CartRef,
		Locator:       req.Locator,
		Quantity:      req.Quantity,
		WarehouseCode: req.WarehouseCode,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ReservationResponse{Reservation: res}, nil
}

// ReserveForCheckout returns partial failures in the body, not as an error.
func (h *ReservationHandler) ReserveForCheckout(ctx context.Context, req *ReserveForCheckoutRequest) (*dto.CheckoutResult, error) {
	items := make([]dto.CheckoutItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = dto.CheckoutItem{
			Locator:       it.Locator,
			Quantity:      it.Quantity,
			WarehouseCode: it.WarehouseCode,
		}
	}

	res, err := h.uc.ReserveForCheckout(ctx, &dto.CheckoutInput{CartRef: req.CartRef, Items: items})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	if len(res.RollbackErrors) > 0 {
		h.logger.Error("checkout rollback incomplete",
			zap.String("cart_ref", req.CartRef), zap.Strings("errors", res.RollbackErrors))
	}
	return res, nil
}

func (h *ReservationHandler) Convert(ctx context.Context, req *ConvertRequest) (*ReservationsResponse, error) {
	converted, err := h.uc.Convert(ctx, req.CartRef, req.OrderRef)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ReservationsResponse{Reservations: converted, Total: len(converted)}, nil
}

func (h *ReservationHandler) Release(ctx context.Context, req *ReservationIDRequest) (*ReservationResponse, error) {
	res, err := h.uc.Release(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ReservationResponse{Reservation: res}, nil
}

func (h *ReservationHandler) ReleaseAllForCart(ctx context.Context, req *CartRequest) (*ReleaseAllResponse, error) {
	n, err := h.uc.ReleaseAllForCart(ctx, req.CartRef)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ReleaseAllResponse{Released: n}, nil
}

func (h *ReservationHandler) GetReservation(ctx context.Context, req *ReservationIDRequest) (*ReservationResponse, error) {
	res, err := h.uc.GetReservation(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ReservationResponse{Reservation: res}, nil
}

func (h *ReservationHandler) ListReservations(ctx context.Context, req *ListReservationsRequest) (*ReservationsResponse, error) {
	items, total, err := h.uc.ListReservations(ctx, &dto.ReservationFilters{
		CartRef:       req.CartRef,
		OrderRef:      req.OrderRef,
		StockRecordID: req.StockRecordID,
		Status:        model.ReservationStatus(req.Status),
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &ReservationsResponse{Reservations: items, Total: total}, nil
}

// ExpireStale runs a sweep now. It goes through the scheduler so a manual
// run and a scheduled one never overlap.
func (h *ReservationHandler) ExpireStale(ctx context.Context, _ *Empty) (*dto.SweepReport, error) {
	var (
		report *dto.SweepReport
		err    error
	)
	if h.sweeper != nil {
		report, err = h.sweeper.RunOnce(ctx)
	} else {
		report, err = h.uc.ExpireStale(ctx)
	}
	if errors.Is(err, sweeper.ErrSweepInProgress) {
		return nil, status.Error(codes.Aborted, err.Error())
	}
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return report, nil
}
