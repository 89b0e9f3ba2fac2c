package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, res *model.Reservation) error {
	query := `
        INSERT INTO reservations (
            id, stock_record_id, cart_ref, order_ref, quantity, status,
            expires_at, closed_at, created_at, updated_at
        )
        VALUES (
            :id, :stock_record_id, :cart_ref, :order_ref, :quantity, :status,
            :expires_at, :closed_at, :created_at, :updated_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.DB, query, res)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := sqlx.GetContext(ctx, r.DB, &res, `SELECT * FROM reservations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (r *PGRepository) FindActiveByCart(ctx context.Context, cartRef string) ([]model.Reservation, error) {
	var items []model.Reservation
	err := sqlx.SelectContext(ctx, r.DB, &items,
		`SELECT * FROM reservations WHERE cart_ref = $1 AND status = 'active' ORDER BY created_at ASC, id ASC`, cartRef)
	return items, err
}

func (r *PGRepository) FindActiveByCartAndRecord(ctx context.Context, cartRef, stockRecordID string) (*model.Reservation, error) {
	var res model.Reservation
	err := sqlx.GetContext(ctx, r.DB, &res, `
        SELECT * FROM reservations
        WHERE cart_ref = $1 AND stock_record_id = $2 AND status = 'active'
        ORDER BY created_at ASC
        LIMIT 1
    `, cartRef, stockRecordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func (r *PGRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	query := `SELECT * FROM reservations WHERE status = 'active' AND expires_at < $1 ORDER BY expires_at ASC`
	args := []interface{}{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	var items []model.Reservation
	err := sqlx.SelectContext(ctx, r.DB, &items, query, args...)
	return items, err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ReservationFilters) ([]model.Reservation, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.CartRef != "" {
		conditions = append(conditions, "cart_ref = :cart_ref")
		args["cart_ref"] = f.CartRef
	}
	if f.OrderRef != "" {
		conditions = append(conditions, "order_ref = :order_ref")
		args["order_ref"] = f.OrderRef
	}
	if f.StockRecordID != "" {
		conditions = append(conditions, "stock_record_id = :stock_record_id")
		args["stock_record_id"] = f.StockRecordID
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM reservations"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, r.DB, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query, listArgs, err := sqlx.Named(
		"SELECT * FROM reservations"+whereClause+" ORDER BY created_at DESC"+postgres.Paginate(f.Page, f.PageSize), args)
	if err != nil {
		return nil, 0, err
	}
	var items []model.Reservation
	if err := sqlx.SelectContext(ctx, r.DB, &items, r.DB.Rebind(query), listArgs...); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) CountActiveByWarehouse(ctx context.Context, warehouseID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.DB, &n, `
        SELECT count(*)
        FROM reservations res
        JOIN stock_records s ON s.id = res.stock_record_id
        WHERE s.warehouse_id = $1 AND res.status = 'active'
    `, warehouseID)
	return n, err
}

func (r *PGRepository) SumActiveByRecord(ctx context.Context, stockRecordID string) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.DB, &n,
		`SELECT COALESCE(sum(quantity), 0) FROM reservations WHERE stock_record_id = $1 AND status = 'active'`, stockRecordID)
	return n, err
}

func (r *PGRepository) Transition(ctx context.Context, id string, to model.ReservationStatus, orderRef *string, at time.Time) (bool, error) {
	// The status guard makes concurrent release/expire/convert race-safe:
	// exactly one caller sees a row affected.
	res, err := r.DB.ExecContext(ctx, `
        UPDATE reservations
        SET status = $2,
            order_ref = COALESCE($3, order_ref),
            closed_at = $4,
            updated_at = $4
        WHERE id = $1 AND status = 'active'
    `, id, to, orderRef, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepository) UpdateActive(ctx context.Context, id string, quantity int64, expiresAt, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE reservations
        SET quantity = $2,
            expires_at = $3,
            updated_at = $4
        WHERE id = $1 AND status = 'active'
    `, id, quantity, expiresAt, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
