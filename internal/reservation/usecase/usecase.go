package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("omnipos-inventory-service/reservation")

const (
	DefaultCartTTL        = 15 * time.Minute
	DefaultCheckoutTTL    = 30 * time.Minute
	DefaultSweepBatchSize = 500
)

type Options struct {
	CartTTL        time.Duration
	CheckoutTTL    time.Duration
	SweepBatchSize int
	// Now overrides the clock; tests use it to move past expiry.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.CartTTL <= 0 {
		o.CartTTL = DefaultCartTTL
	}
	if o.CheckoutTTL <= 0 {
		o.CheckoutTTL = DefaultCheckoutTTL
	}
	if o.SweepBatchSize <= 0 {
		o.SweepBatchSize = DefaultSweepBatchSize
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

type reservationUseCase struct {
	store  *store.Store
	cache  stock.AvailabilityCache
	events stock.EventPublisher
	opts   Options
	logger logger.ZapLogger
}

// NewReservationUseCase wires the reservation manager. cache and events may be nil.
func NewReservationUseCase(s *store.Store, cache stock.AvailabilityCache, events stock.EventPublisher, opts Options, log logger.ZapLogger) reservation.UseCase {
	return &reservationUseCase{
		store:  s,
		cache:  cache,
		events: events,
		opts:   opts.withDefaults(),
		logger: log,
	}
}

// candidate is a stock record together with the warehouse it lives in.
type candidate struct {
	rec model.StockRecord
	wh  model.Warehouse
}

// candidates lists the records a locator can be held from, in the order
// holds should be attempted.
func (uc *reservationUseCase) candidates(ctx context.Context, s *store.Store, locator, warehouseCode string) ([]candidate, error) {
	records, err := s.Stock.FindByLocator(ctx, locator)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperr.NotFound("stock", locator)
	}

	if warehouseCode != "" {
		w, err := s.Warehouses.FindByCode(ctx, warehouseCode)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, apperr.NotFound("warehouse", model.NormalizeCode(warehouseCode))
		}
		if !w.IsActive {
			return nil, fmt.Errorf("warehouse %s: %w", w.Code, apperr.ErrWarehouseInactive)
		}
		for _, rec := range records {
			if rec.WarehouseID == w.ID {
				return []candidate{{rec: rec, wh: *w}}, nil
			}
		}
		return nil, apperr.NotFound("stock", locator+"@"+w.Code)
	}

	active, err := s.Warehouses.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, w := range active {
		for _, rec := range records {
			if rec.WarehouseID == w.ID {
				out = append(out, candidate{rec: rec, wh: w})
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no active warehouse stocks %s: %w", locator, apperr.ErrWarehouseInactive)
	}
	return out, nil
}

// holdFirst reserves qty from the first candidate that can hold it. Each
// warehouse row is share-locked first so a concurrent Deactivate either
// sees the new reservation or makes this attempt skip the warehouse.
func (uc *reservationUseCase) holdFirst(ctx context.Context, tx *store.Store, cands []candidate, cartRef string, qty int64, expiresAt, now time.Time) (*model.Reservation, *candidate, error) {
	var best int64
	sawActive := false
	for i := range cands {
		c := &cands[i]
		w, err := tx.Warehouses.FindByIDForShare(ctx, c.wh.ID)
		if err != nil {
			return nil, nil, err
		}
		if w == nil || !w.IsActive {
			continue
		}
		sawActive = true

		rec, err := tx.Stock.IncrementReserved(ctx, c.rec.ID, qty)
		if err != nil {
			var insufficient *apperr.InsufficientStockError
			if errors.As(err, &insufficient) {
				if insufficient.Available > best {
					best = insufficient.Available
				}
				continue
			}
			return nil, nil, err
		}

		res := &model.Reservation{
			ID:            uuid.New().String(),
			StockRecordID: rec.ID,
			CartRef:       cartRef,
			Quantity:      qty,
			Status:        model.ReservationActive,
			ExpiresAt:     expiresAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Reservations.Create(ctx, res); err != nil {
			return nil, nil, err
		}
		c.rec = *rec
		return res, c, nil
	}

	if !sawActive {
		return nil, nil, fmt.Errorf("no active warehouse stocks %s: %w", cands[0].rec.SKU, apperr.ErrWarehouseInactive)
	}
	e := &apperr.InsufficientStockError{SKU: cands[0].rec.SKU, Requested: qty, Available: best}
	if len(cands) == 1 {
		e.StockRecordID = cands[0].rec.ID
		e.WarehouseCode = cands[0].wh.Code
	}
	return nil, nil, e
}

func (uc *reservationUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.ref", input.CartRef),
		attribute.String("stock.locator", input.Locator),
		attribute.Int64("reservation.quantity", input.Quantity),
	)

	locator := strings.TrimSpace(input.Locator)
	if err := validateHold(input.CartRef, locator, input.Quantity); err != nil {
		return nil, spanError(span, err)
	}

	now := uc.opts.Now()
	var res *model.Reservation
	var held *candidate
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		cands, err := uc.candidates(ctx, tx, locator, input.WarehouseCode)
		if err != nil {
			return err
		}
		res, held, err = uc.holdFirst(ctx, tx, cands, input.CartRef, input.Quantity, now.Add(uc.opts.CartTTL), now)
		return err
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(
		attribute.String("reservation.id", res.ID),
		attribute.String("warehouse.code", held.wh.Code),
	)
	uc.logger.Info("stock reserved",
		zap.String("reservation_id", res.ID),
		zap.String("cart_ref", res.CartRef),
		zap.String("sku", held.rec.SKU),
		zap.String("warehouse", held.wh.Code),
		zap.Int64("quantity", res.Quantity),
	)
	uc.invalidate(ctx, &held.rec)
	return res, nil
}

// Convert turns every active hold of the cart into a sale in one
// transaction: each reservation is closed and its record loses the
// quantity from both on-hand and reserved in the same row update.
func (uc *reservationUseCase) Convert(ctx context.Context, cartRef, orderRef string) ([]model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.Convert")
	defer span.End()
	span.SetAttributes(attribute.String("cart.ref", cartRef), attribute.String("order.ref", orderRef))

	if strings.TrimSpace(cartRef) == "" || strings.TrimSpace(orderRef) == "" {
		return nil, spanError(span, apperr.Invalid("cart_ref and order_ref are required"))
	}

	now := uc.opts.Now()
	var converted []model.Reservation
	var touched []*model.StockRecord
	var events []*stock.StatusEvent
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		active, err := tx.Reservations.FindActiveByCart(ctx, cartRef)
		if err != nil {
			return err
		}

		for _, res := range active {
			moved, err := tx.Reservations.Transition(ctx, res.ID, model.ReservationConverted, &orderRef, now)
			if err != nil {
				return err
			}
			if !moved {
				continue
			}

			ref := orderRef
			adj := &model.Adjustment{
				ID:            uuid.New().String(),
				StockRecordID: res.StockRecordID,
				Type:          model.AdjustmentSale,
				QtyChange:     -res.Quantity,
				Reason:        "order " + orderRef,
				ReferenceType: model.ReferenceOrder,
				ReferenceID:   &ref,
				CreatedAt:     now,
			}
			rec, err := tx.Stock.ApplyAdjustment(ctx, adj, -res.Quantity)
			if err != nil {
				return fmt.Errorf("convert reservation %s: %w", res.ID, err)
			}

			res.Status = model.ReservationConverted
			res.OrderRef = &ref
			res.ClosedAt = &now
			res.UpdatedAt = now
			converted = append(converted, res)
			touched = append(touched, rec)
			events = append(events, stock.StatusChange(rec, -res.Quantity, -res.Quantity, now))
		}

		if len(converted) == 0 {
			return apperr.NotFound("active reservations for cart", cartRef)
		}
		return nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.Int("reservation.converted", len(converted)))
	uc.logger.Info("cart converted",
		zap.String("cart_ref", cartRef), zap.String("order_ref", orderRef), zap.Int("reservations", len(converted)))
	for _, rec := range touched {
		uc.invalidate(ctx, rec)
	}
	for _, e := range events {
		uc.publish(ctx, e)
	}
	return converted, nil
}

func (uc *reservationUseCase) Release(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.Release")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", id))

	res, err := uc.store.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}
	if res == nil {
		return nil, spanError(span, apperr.NotFound("reservation", id))
	}
	if res.Status.IsTerminal() {
		return nil, spanError(span, fmt.Errorf("reservation %s is %s: %w", id, res.Status, apperr.ErrNotActive))
	}

	released, err := uc.finish(ctx, id, model.ReservationReleased)
	if err != nil {
		return nil, spanError(span, err)
	}
	return released, nil
}

// ReleaseAllForCart is idempotent: holds that are already closed are skipped.
func (uc *reservationUseCase) ReleaseAllForCart(ctx context.Context, cartRef string) (int, error) {
	ctx, span := tracer.Start(ctx, "reservation.ReleaseAllForCart")
	defer span.End()
	span.SetAttributes(attribute.String("cart.ref", cartRef))

	active, err := uc.store.Reservations.FindActiveByCart(ctx, cartRef)
	if err != nil {
		return 0, spanError(span, err)
	}

	released := 0
	for _, res := range active {
		if _, err := uc.finish(ctx, res.ID, model.ReservationReleased); err != nil {
			if errors.Is(err, apperr.ErrNotActive) {
				continue
			}
			return released, spanError(span, err)
		}
		released++
	}

	if released > 0 {
		uc.logger.Info("cart released", zap.String("cart_ref", cartRef), zap.Int("reservations", released))
	}
	return released, nil
}

// finish closes an active reservation and returns its quantity to the
// record in one transaction. It reports ErrNotActive when another caller
// closed the reservation first.
func (uc *reservationUseCase) finish(ctx context.Context, id string, to model.ReservationStatus) (*model.Reservation, error) {
	now := uc.opts.Now()
	var closed *model.Reservation
	var rec *model.StockRecord
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		moved, err := tx.Reservations.Transition(ctx, id, to, nil, now)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("reservation %s: %w", id, apperr.ErrNotActive)
		}
		// Read after the transition: the row is ours now, so the quantity
		// cannot move under us.
		closed, err = tx.Reservations.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if closed == nil {
			return apperr.NotFound("reservation", id)
		}
		rec, err = tx.Stock.IncrementReserved(ctx, closed.StockRecordID, -closed.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, rec)
	return closed, nil
}

func (uc *reservationUseCase) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := uc.store.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperr.NotFound("reservation", id)
	}
	return res, nil
}

func (uc *reservationUseCase) ListReservations(ctx context.Context, filters *dto.ReservationFilters) ([]model.Reservation, int, error) {
	if filters == nil {
		filters = &dto.ReservationFilters{}
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, apperr.Invalid("unknown reservation status %q", filters.Status)
	}
	return uc.store.Reservations.FindAll(ctx, filters)
}

// ExpireStale closes up to SweepBatchSize overdue holds. Each one is
// handled on its own; a failure is recorded in the report and the pass
// carries on. Only the initial scan can make it return an error.
func (uc *reservationUseCase) ExpireStale(ctx context.Context) (*dto.SweepReport, error) {
	ctx, span := tracer.Start(ctx, "reservation.ExpireStale")
	defer span.End()

	report := &dto.SweepReport{StartedAt: uc.opts.Now()}
	stale, err := uc.store.Reservations.FindExpired(ctx, report.StartedAt, uc.opts.SweepBatchSize)
	if err != nil {
		return nil, spanError(span, err)
	}
	report.Scanned = len(stale)

	for _, res := range stale {
		if err := ctx.Err(); err != nil {
			break
		}
		if _, err := uc.finish(ctx, res.ID, model.ReservationExpired); err != nil {
			if errors.Is(err, apperr.ErrNotActive) {
				report.Skipped++
				continue
			}
			report.Failures = append(report.Failures, dto.SweepFailure{ReservationID: res.ID, Error: err.Error()})
			continue
		}
		report.Expired++
	}
	report.FinishedAt = uc.opts.Now()

	span.SetAttributes(
		attribute.Int("sweep.scanned", report.Scanned),
		attribute.Int("sweep.expired", report.Expired),
		attribute.Int("sweep.failed", len(report.Failures)),
	)
	return report, nil
}

func validateHold(cartRef, locator string, qty int64) error {
	switch {
	case strings.TrimSpace(cartRef) == "":
		return apperr.Invalid("cart_ref is required")
	case locator == "":
		return apperr.Invalid("sku or variant_ref is required")
	case qty < 1:
		return apperr.Invalid("quantity must be at least 1")
	}
	return nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (uc *reservationUseCase) invalidate(ctx context.Context, rec *model.StockRecord) {
	if err := stock.InvalidateAvailability(ctx, uc.cache, rec); err != nil {
		uc.logger.Warn("failed to invalidate availability cache", zap.String("sku", rec.SKU), zap.Error(err))
	}
}

func (uc *reservationUseCase) publish(ctx context.Context, event *stock.StatusEvent) {
	if event == nil || uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, event.StockRecordID, event); err != nil {
		uc.logger.Error("failed to publish stock status event",
			zap.String("stock_record_id", event.StockRecordID), zap.Error(err))
	}
}
