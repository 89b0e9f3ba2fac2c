package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// checkoutLine is one merged checkout item.
type checkoutLine struct {
	index         int
	locator       string
	warehouseCode string
	quantity      int64
}

// holdChange records what the checkout did to one reservation so it can
// be undone.
type holdChange struct {
	line          checkoutLine
	res           model.Reservation
	rec           model.StockRecord
	warehouseCode string
	created       bool
	// pending marks a shrink or plain refresh, applied after all growth.
	pending bool
	// applied is set once the change is on the compensation list.
	applied    bool
	pos        int
	prevQty    int64
	prevExpiry time.Time
}

func mergeLines(items []dto.CheckoutItem) []checkoutLine {
	var lines []checkoutLine
	seen := map[string]int{}
	for i, item := range items {
		locator := strings.TrimSpace(item.Locator)
		code := model.NormalizeCode(item.WarehouseCode)
		key := locator + "\x00" + code
		if at, ok := seen[key]; ok {
			lines[at].quantity += item.Quantity
			continue
		}
		seen[key] = len(lines)
		lines = append(lines, checkoutLine{index: i, locator: locator, warehouseCode: code, quantity: item.Quantity})
	}
	return lines
}

// ReserveForCheckout holds every item or nothing. Growth is applied first so
// a failure never has to re-grow a hold it already shrank; on failure every
// change made by this call is undone in reverse order.
func (uc *reservationUseCase) ReserveForCheckout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error) {
	ctx, span := tracer.Start(ctx, "reservation.ReserveForCheckout")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.ref", input.CartRef),
		attribute.Int("checkout.items", len(input.Items)),
	)

	if strings.TrimSpace(input.CartRef) == "" {
		return nil, spanError(span, apperr.Invalid("cart_ref is required"))
	}
	if len(input.Items) == 0 {
		return nil, spanError(span, apperr.Invalid("checkout needs at least one item"))
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.Locator) == "" {
			return nil, spanError(span, apperr.Invalid("item %d: sku or variant_ref is required", i))
		}
		if item.Quantity < 1 {
			return nil, spanError(span, apperr.Invalid("item %d: quantity must be at least 1", i))
		}
	}

	lines := mergeLines(input.Items)
	now := uc.opts.Now()
	// one change per stock record; lines naming the same record through a
	// different locator or hint add to it
	var changes []*holdChange
	touched := map[string]*holdChange{}
	var applied []*holdChange
	markApplied := func(ch *holdChange) {
		if !ch.pending && !ch.applied {
			ch.applied = true
			applied = append(applied, ch)
		}
	}

	failedAt := -1
	var failure *dto.ItemFailure

	// 1. Growth: new holds and extensions that need more stock
	for i, line := range lines {
		ch, err := uc.growLine(ctx, input.CartRef, line, touched, now)
		if err != nil {
			failedAt, failure = i, failureFor(line, err)
			break
		}
		if touched[ch.rec.ID] != ch {
			ch.pos = i
			touched[ch.rec.ID] = ch
			changes = append(changes, ch)
		}
		markApplied(ch)
	}

	// 2. Shrinks and refreshes, only once nothing can fail for lack of stock
	if failure == nil {
		for _, ch := range changes {
			if !ch.pending {
				continue
			}
			if err := uc.settleLine(ctx, ch, now); err != nil {
				failedAt, failure = ch.pos, failureFor(ch.line, err)
				break
			}
			ch.pending = false
			markApplied(ch)
		}
	}

	if failure == nil {
		result := &dto.CheckoutResult{AllReserved: true, Reservations: make([]model.Reservation, 0, len(changes))}
		for _, ch := range changes {
			result.Reservations = append(result.Reservations, ch.res)
		}
		uc.logger.Info("checkout reserved",
			zap.String("cart_ref", input.CartRef), zap.Int("lines", len(lines)))
		for _, ch := range applied {
			uc.invalidate(ctx, &ch.rec)
		}
		return result, nil
	}

	// 3. Compensate newest first
	result := &dto.CheckoutResult{Reservations: []model.Reservation{}, Failures: []dto.ItemFailure{*failure}}
	for i := len(applied) - 1; i >= 0; i-- {
		ch := applied[i]
		if err := uc.undo(ctx, ch); err != nil {
			uc.logger.Error("checkout rollback failed",
				zap.String("cart_ref", input.CartRef),
				zap.String("reservation_id", ch.res.ID),
				zap.Error(err),
			)
			result.RollbackErrors = append(result.RollbackErrors, fmt.Sprintf("%s: %v", ch.res.ID, err))
		}
		uc.invalidate(ctx, &ch.rec)
	}

	// Report the remaining lines too, so the cart can fix them in one go.
	for _, line := range lines[failedAt+1:] {
		if f := uc.shortfall(ctx, input.CartRef, line); f != nil {
			result.Failures = append(result.Failures, *f)
		}
	}

	span.SetStatus(codes.Error, failure.Reason)
	uc.logger.Warn("checkout reservation failed",
		zap.String("cart_ref", input.CartRef),
		zap.Int("item", failure.Index),
		zap.String("reason", failure.Reason),
		zap.Int("rolled_back", len(applied)),
	)
	return result, nil
}

func (uc *reservationUseCase) growLine(ctx context.Context, cartRef string, line checkoutLine, touched map[string]*holdChange, now time.Time) (*holdChange, error) {
	expiresAt := now.Add(uc.opts.CheckoutTTL)
	var ch *holdChange
	err := uc.store.WithTx(ctx, func(tx *store.Store) error {
		cands, err := uc.candidates(ctx, tx, line.locator, line.warehouseCode)
		if err != nil {
			return err
		}

		for _, c := range cands {
			if prev, ok := touched[c.rec.ID]; ok {
				ch = prev
				return uc.addToHold(ctx, tx, prev, line.quantity, c.wh, expiresAt, now)
			}
			existing, err := tx.Reservations.FindActiveByCartAndRecord(ctx, cartRef, c.rec.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				continue
			}

			ch = &holdChange{
				line:          line,
				res:           *existing,
				rec:           c.rec,
				warehouseCode: c.wh.Code,
				prevQty:       existing.Quantity,
				prevExpiry:    existing.ExpiresAt,
			}
			delta := line.quantity - existing.Quantity
			if delta <= 0 {
				ch.pending = true
				return nil
			}

			if _, err := tx.Warehouses.FindByIDForShare(ctx, c.wh.ID); err != nil {
				return err
			}
			if _, err := tx.Stock.IncrementReserved(ctx, c.rec.ID, delta); err != nil {
				var insufficient *apperr.InsufficientStockError
				if errors.As(err, &insufficient) {
					insufficient.WarehouseCode = c.wh.Code
					insufficient.Requested = line.quantity
					insufficient.Available += existing.Quantity
				}
				return err
			}
			ok, err := tx.Reservations.UpdateActive(ctx, existing.ID, line.quantity, expiresAt, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("reservation %s: %w", existing.ID, apperr.ErrNotActive)
			}
			ch.res.Quantity = line.quantity
			ch.res.ExpiresAt = expiresAt
			ch.res.UpdatedAt = now
			return nil
		}

		res, held, err := uc.holdFirst(ctx, tx, cands, cartRef, line.quantity, expiresAt, now)
		if err != nil {
			return err
		}
		ch = &holdChange{line: line, res: *res, rec: held.rec, warehouseCode: held.wh.Code, created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// addToHold raises the target of a hold this call already touched by qty.
// A pending shrink that now needs more stock becomes growth.
func (uc *reservationUseCase) addToHold(ctx context.Context, tx *store.Store, ch *holdChange, qty int64, wh model.Warehouse, expiresAt, now time.Time) error {
	target := ch.line.quantity + qty
	cur, err := tx.Reservations.FindByID(ctx, ch.res.ID)
	if err != nil {
		return err
	}
	if cur == nil || cur.Status != model.ReservationActive {
		return fmt.Errorf("reservation %s: %w", ch.res.ID, apperr.ErrNotActive)
	}

	if delta := target - cur.Quantity; delta > 0 {
		if _, err := tx.Warehouses.FindByIDForShare(ctx, wh.ID); err != nil {
			return err
		}
		if _, err := tx.Stock.IncrementReserved(ctx, cur.StockRecordID, delta); err != nil {
			var insufficient *apperr.InsufficientStockError
			if errors.As(err, &insufficient) {
				insufficient.WarehouseCode = wh.Code
				insufficient.Requested = target
				insufficient.Available += cur.Quantity
			}
			return err
		}
		ok, err := tx.Reservations.UpdateActive(ctx, cur.ID, target, expiresAt, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reservation %s: %w", cur.ID, apperr.ErrNotActive)
		}
		ch.res = *cur
		ch.res.Quantity = target
		ch.res.ExpiresAt = expiresAt
		ch.res.UpdatedAt = now
		ch.pending = false
	}
	ch.line.quantity = target
	return nil
}

// settleLine applies a shrink (or a refresh at the same quantity).
func (uc *reservationUseCase) settleLine(ctx context.Context, ch *holdChange, now time.Time) error {
	expiresAt := now.Add(uc.opts.CheckoutTTL)
	return uc.store.WithTx(ctx, func(tx *store.Store) error {
		cur, err := tx.Reservations.FindByID(ctx, ch.res.ID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Status != model.ReservationActive {
			return fmt.Errorf("reservation %s: %w", ch.res.ID, apperr.ErrNotActive)
		}
		if delta := ch.line.quantity - cur.Quantity; delta != 0 {
			if _, err := tx.Stock.IncrementReserved(ctx, cur.StockRecordID, delta); err != nil {
				return err
			}
		}
		ok, err := tx.Reservations.UpdateActive(ctx, cur.ID, ch.line.quantity, expiresAt, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reservation %s: %w", cur.ID, apperr.ErrNotActive)
		}
		ch.res = *cur
		ch.res.Quantity = ch.line.quantity
		ch.res.ExpiresAt = expiresAt
		ch.res.UpdatedAt = now
		return nil
	})
}

// undo releases a hold this call created, or puts an extended hold back to
// its exact pre-call quantity and expiry.
func (uc *reservationUseCase) undo(ctx context.Context, ch *holdChange) error {
	if ch.created {
		_, err := uc.finish(ctx, ch.res.ID, model.ReservationReleased)
		if errors.Is(err, apperr.ErrNotActive) {
			return nil
		}
		return err
	}

	now := uc.opts.Now()
	return uc.store.WithTx(ctx, func(tx *store.Store) error {
		cur, err := tx.Reservations.FindByID(ctx, ch.res.ID)
		if err != nil {
			return err
		}
		// Already gone (swept or released): its hold was returned with it.
		if cur == nil || cur.Status != model.ReservationActive {
			return nil
		}
		if delta := ch.prevQty - cur.Quantity; delta != 0 {
			if _, err := tx.Stock.IncrementReserved(ctx, cur.StockRecordID, delta); err != nil {
				return err
			}
		}
		_, err = tx.Reservations.UpdateActive(ctx, cur.ID, ch.prevQty, ch.prevExpiry, now)
		return err
	})
}

// shortfall checks, without holding anything, whether line could be held.
func (uc *reservationUseCase) shortfall(ctx context.Context, cartRef string, line checkoutLine) *dto.ItemFailure {
	cands, err := uc.candidates(ctx, uc.store, line.locator, line.warehouseCode)
	if err != nil {
		return failureFor(line, err)
	}

	var best int64
	for _, c := range cands {
		existing, err := uc.store.Reservations.FindActiveByCartAndRecord(ctx, cartRef, c.rec.ID)
		if err != nil {
			return failureFor(line, err)
		}
		if existing != nil {
			if line.quantity-existing.Quantity <= c.rec.Holdable() {
				return nil
			}
			return failureFor(line, &apperr.InsufficientStockError{
				SKU:           c.rec.SKU,
				WarehouseCode: c.wh.Code,
				Requested:     line.quantity,
				Available:     existing.Quantity + c.rec.Holdable(),
			})
		}
		h := c.rec.Holdable()
		if h >= line.quantity {
			return nil
		}
		if h > best {
			best = h
		}
	}
	return failureFor(line, &apperr.InsufficientStockError{
		SKU:       cands[0].rec.SKU,
		Requested: line.quantity,
		Available: best,
	})
}

func failureFor(line checkoutLine, err error) *dto.ItemFailure {
	f := &dto.ItemFailure{
		Index:         line.index,
		Locator:       line.locator,
		WarehouseCode: line.warehouseCode,
		Requested:     line.quantity,
		Reason:        err.Error(),
	}
	var insufficient *apperr.InsufficientStockError
	if errors.As(err, &insufficient) {
		f.SKU = insufficient.SKU
		if insufficient.WarehouseCode != "" {
			f.WarehouseCode = insufficient.WarehouseCode
		}
		f.Available = insufficient.Available
	}
	return f
}
