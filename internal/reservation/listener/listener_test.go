package listener

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueReader hands out queued messages, then cancels the listener.
type queueReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type recordingUseCase struct {
	reservation.UseCase
	converted  [][2]string
	released   []string
	convertErr error
}

func (u *recordingUseCase) Convert(_ context.Context, cartRef, orderRef string) ([]model.Reservation, error) {
	u.converted = append(u.converted, [2]string{cartRef, orderRef})
	if u.convertErr != nil {
		return nil, u.convertErr
	}
	return []model.Reservation{{CartRef: cartRef}}, nil
}

func (u *recordingUseCase) ReleaseAllForCart(_ context.Context, cartRef string) (int, error) {
	u.released = append(u.released, cartRef)
	return 1, nil
}

func message(t *testing.T, eventType, cart, order string) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(OrderEvent{
		EventID:   "evt-" + cart,
		EventType: eventType,
		Payload:   OrderPayload{OrderID: order, CartID: cart},
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(cart), Value: raw}
}

func TestOrderListener_DispatchesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &queueReader{cancel: cancel, msgs: []kafka.Message{
		message(t, EventOrderPlaced, "cart-1", "order-1"),
		{Value: []byte("{not json")},
		message(t, "SomethingElse", "cart-x", ""),
		message(t, EventCartAbandoned, "cart-2", ""),
	}}
	uc := &recordingUseCase{}

	NewOrderListener(reader, uc, logger.NewNop()).Start(ctx)

	assert.Equal(t, [][2]string{{"cart-1", "order-1"}}, uc.converted)
	assert.Equal(t, []string{"cart-2"}, uc.released)
}

func TestOrderListener_RedeliveredOrderIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &queueReader{cancel: cancel, msgs: []kafka.Message{
		message(t, EventOrderPlaced, "cart-1", "order-1"),
		message(t, EventOrderPlaced, "cart-1", "order-1"),
	}}
	uc := &recordingUseCase{convertErr: apperr.NotFound("active reservations for cart", "cart-1")}

	NewOrderListener(reader, uc, logger.NewNop()).Start(ctx)
	assert.Len(t, uc.converted, 2)
}
