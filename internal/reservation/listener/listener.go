package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventOrderPlaced   = "OrderPlaced"
	EventCartAbandoned = "CartAbandoned"
)

// MessageReader is the part of broker.KafkaConsumer the listener needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type OrderListener struct {
	reader MessageReader
	uc     reservation.UseCase
	logger logger.ZapLogger
}

func NewOrderListener(reader MessageReader, uc reservation.UseCase, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		reader: reader,
		uc:     uc,
		logger: logger,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order event listener")
			return
		default:
			msg, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	OrderID string `json:"order_id"`
	CartID  string `json:"cart_id"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	switch event.EventType {
	case EventOrderPlaced:
		l.handleOrderPlaced(ctx, &event)
	case EventCartAbandoned:
		l.handleCartAbandoned(ctx, &event)
	}
}

func (l *OrderListener) handleOrderPlaced(ctx context.Context, event *OrderEvent) {
	log := l.logger.With(zap.String("event_id", event.EventID),
		zap.String("cart_ref", event.Payload.CartID), zap.String("order_ref", event.Payload.OrderID))

	converted, err := l.uc.Convert(ctx, event.Payload.CartID, event.Payload.OrderID)
	if err != nil {
		// Redelivered events find the cart already converted.
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn("No active reservations to convert")
			return
		}
		log.Error("Failed to convert reservations for order", zap.Error(err))
		return
	}
	log.Info("Converted reservations for order", zap.Int("reservations", len(converted)))
}

func (l *OrderListener) handleCartAbandoned(ctx context.Context, event *OrderEvent) {
	released, err := l.uc.ReleaseAllForCart(ctx, event.Payload.CartID)
	if err != nil {
		l.logger.Error("Failed to release abandoned cart",
			zap.String("cart_ref", event.Payload.CartID), zap.Error(err))
		return
	}
	l.logger.Info("Released abandoned cart",
		zap.String("cart_ref", event.Payload.CartID), zap.Int("reservations", released))
}
