package rpc

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus maps domain errors onto gRPC codes. Errors that already carry a
// status pass through unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, apperr.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, apperr.ErrInsufficientQuantity),
		errors.Is(err, apperr.ErrWarehouseInactive),
		errors.Is(err, apperr.ErrNotActive),
		errors.Is(err, apperr.ErrLastActiveWarehouse),
		errors.Is(err, apperr.ErrHasActiveReservations),
		errors.Is(err, apperr.ErrDefaultWarehouse),
		errors.Is(err, apperr.ErrHasStockRecords):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
