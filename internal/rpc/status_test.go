package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{apperr.NotFound("warehouse", "X"), codes.NotFound},
		{apperr.Invalid("qty"), codes.InvalidArgument},
		{fmt.Errorf("wh: %w", apperr.ErrAlreadyExists), codes.AlreadyExists},
		{&apperr.InsufficientStockError{SKU: "A", Requested: 2}, codes.FailedPrecondition},
		{apperr.ErrWarehouseInactive, codes.FailedPrecondition},
		{apperr.ErrNotActive, codes.FailedPrecondition},
		{apperr.ErrLastActiveWarehouse, codes.FailedPrecondition},
		{apperr.ErrHasActiveReservations, codes.FailedPrecondition},
		{apperr.ErrDefaultWarehouse, codes.FailedPrecondition},
		{apperr.ErrHasStockRecords, codes.FailedPrecondition},
		{apperr.Invariant("reserved < 0"), codes.Internal},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)), tt.err.Error())
	}

	assert.NoError(t, ToStatus(nil))

	already := status.Error(codes.Unavailable, "down")
	assert.Equal(t, already, ToStatus(already))
}

func TestJSONCodec(t *testing.T) {
	type msg struct {
		SKU string `json:"sku"`
		Qty int64  `json:"qty"`
	}
	c := JSONCodec{}
	raw, err := c.Marshal(&msg{SKU: "A", Qty: 3})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"sku":"A","qty":3}`, string(raw))

	var out msg
	assert.NoError(t, c.Unmarshal(raw, &out))
	assert.Equal(t, msg{SKU: "A", Qty: 3}, out)

	// an empty body decodes to the zero request
	assert.NoError(t, c.Unmarshal(nil, &out))
	assert.Equal(t, "json", c.Name())
}
