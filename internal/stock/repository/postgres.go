package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

// NewPGRepository accepts either the pool or an open transaction.
func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, rec *model.StockRecord) error {
	query := `
        INSERT INTO stock_records (
            id, product_ref, variant_ref, warehouse_id, sku,
            qty_on_hand, qty_reserved, low_stock_threshold, allow_backorder,
            reorder_point, backorder_limit, created_at, updated_at
        )
        VALUES (
            :id, :product_ref, :variant_ref, :warehouse_id, :sku,
            :qty_on_hand, :qty_reserved, :low_stock_threshold, :allow_backorder,
            :reorder_point, :backorder_limit, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, rec); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("stock record: %w", apperr.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (r *PGRepository) get(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := sqlx.GetContext(ctx, q, &rec, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.StockRecord, error) {
	return r.get(ctx, r.DB, `SELECT * FROM stock_records WHERE id = $1`, id)
}

func (r *PGRepository) FindBySKU(ctx context.Context, sku, warehouseID string) (*model.StockRecord, error) {
	return r.get(ctx, r.DB, `SELECT * FROM stock_records WHERE sku = $1 AND warehouse_id = $2`, sku, warehouseID)
}

func (r *PGRepository) FindByIdentity(ctx context.Context, productRef, variantRef, warehouseID string) (*model.StockRecord, error) {
	return r.get(ctx, r.DB,
		`SELECT * FROM stock_records WHERE product_ref = $1 AND variant_ref = $2 AND warehouse_id = $3`,
		productRef, variantRef, warehouseID)
}

func (r *PGRepository) FindByLocator(ctx context.Context, locator string) ([]model.StockRecord, error) {
	var items []model.StockRecord
	err := sqlx.SelectContext(ctx, r.DB, &items,
		`SELECT * FROM stock_records WHERE sku = $1 OR variant_ref = $1 ORDER BY created_at ASC`, locator)
	return items, err
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.StockFilters) ([]model.StockRecord, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.WarehouseID != "" {
		conditions = append(conditions, "warehouse_id = :warehouse_id")
		args["warehouse_id"] = f.WarehouseID
	}
	if f.SKU != "" {
		conditions = append(conditions, "sku = :sku")
		args["sku"] = f.SKU
	}
	if f.VariantRef != "" {
		conditions = append(conditions, "variant_ref = :variant_ref")
		args["variant_ref"] = f.VariantRef
	}
	if f.ProductRef != "" {
		conditions = append(conditions, "product_ref = :product_ref")
		args["product_ref"] = f.ProductRef
	}
	switch f.Status {
	case model.StatusOutOfStock:
		conditions = append(conditions, "qty_on_hand - qty_reserved <= 0")
	case model.StatusLowStock:
		conditions = append(conditions, "qty_on_hand - qty_reserved > 0 AND qty_on_hand - qty_reserved <= low_stock_threshold")
	case model.StatusInStock:
		conditions = append(conditions, "qty_on_hand - qty_reserved > low_stock_threshold")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM stock_records"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, r.DB, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query, listArgs, err := sqlx.Named(
		"SELECT * FROM stock_records"+whereClause+" ORDER BY sku ASC, warehouse_id ASC"+postgres.Paginate(f.Page, f.PageSize), args)
	if err != nil {
		return nil, 0, err
	}
	var items []model.StockRecord
	if err := sqlx.SelectContext(ctx, r.DB, &items, r.DB.Rebind(query), listArgs...); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) CountByWarehouse(ctx context.Context, warehouseID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.DB, &n, `SELECT count(*) FROM stock_records WHERE warehouse_id = $1`, warehouseID)
	return n, err
}

func (r *PGRepository) UpdateSettings(ctx context.Context, rec *model.StockRecord) error {
	query := `
        UPDATE stock_records
        SET low_stock_threshold = :low_stock_threshold,
            allow_backorder = :allow_backorder,
            reorder_point = :reorder_point,
            backorder_limit = :backorder_limit,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, r.DB, query, rec)
	return err
}

func (r *PGRepository) Summaries(ctx context.Context, warehouseID string) ([]dto.WarehouseSummary, error) {
	query := `
        SELECT w.id AS warehouse_id,
               w.code AS warehouse_code,
               w.is_active AS is_active,
               count(s.id) AS records,
               COALESCE(sum(s.qty_on_hand), 0) AS on_hand,
               COALESCE(sum(s.qty_reserved), 0) AS reserved,
               COALESCE(sum(GREATEST(s.qty_on_hand - s.qty_reserved, 0)), 0) AS available,
               count(s.id) FILTER (WHERE s.qty_on_hand - s.qty_reserved > s.low_stock_threshold) AS in_stock,
               count(s.id) FILTER (WHERE s.qty_on_hand - s.qty_reserved > 0
                                     AND s.qty_on_hand - s.qty_reserved <= s.low_stock_threshold) AS low_stock,
               count(s.id) FILTER (WHERE s.qty_on_hand - s.qty_reserved <= 0) AS out_of_stock,
               count(s.id) FILTER (WHERE s.reorder_point > 0
                                     AND GREATEST(s.qty_on_hand - s.qty_reserved, 0) <= s.reorder_point) AS needs_reorder
        FROM warehouses w
        LEFT JOIN stock_records s ON s.warehouse_id = w.id
        WHERE ($1 = '' OR w.id::text = $1)
        GROUP BY w.id, w.code, w.is_active, w.priority
        ORDER BY w.priority ASC, w.code ASC
    `
	var items []dto.WarehouseSummary
	err := sqlx.SelectContext(ctx, r.DB, &items, query, warehouseID)
	return items, err
}

func (r *PGRepository) IncrementReserved(ctx context.Context, id string, delta int64) (*model.StockRecord, error) {
	// Single conditional statement: concurrent callers serialize on the row
	// lock and each re-evaluates the predicate against the committed value.
	query := `
        UPDATE stock_records
        SET qty_reserved = qty_reserved + $2,
            updated_at = now()
        WHERE id = $1
          AND qty_reserved + $2 >= 0
          AND (
              $2 <= 0
              OR qty_reserved + $2 <= qty_on_hand
                 + CASE WHEN allow_backorder THEN backorder_limit ELSE 0 END
          )
        RETURNING *
    `
	rec, err := r.get(ctx, r.DB, query, id, delta)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	// Nothing matched: work out why from the current row.
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.NotFound("stock record", id)
	}
	if err := current.CheckReserve(delta); err != nil {
		return nil, err
	}
	// The row changed between the two reads; report what we saw.
	return nil, &apperr.InsufficientStockError{
		StockRecordID: current.ID,
		SKU:           current.SKU,
		Requested:     delta,
		Available:     current.Holdable(),
	}
}

func (r *PGRepository) ApplyAdjustment(ctx context.Context, adj *model.Adjustment, reservedDelta int64) (*model.StockRecord, error) {
	var updated *model.StockRecord
	err := postgres.RunInTx(ctx, r.DB, func(tx sqlx.ExtContext) error {
		// 1. Lock the record so the before-snapshot is the value we overwrite
		rec, err := r.get(ctx, tx, `SELECT * FROM stock_records WHERE id = $1 FOR UPDATE`, adj.StockRecordID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperr.NotFound("stock record", adj.StockRecordID)
		}
		if err := rec.CheckMovement(adj.QtyChange, reservedDelta); err != nil {
			return err
		}

		adj.QtyBefore = rec.QtyOnHand
		adj.QtyAfter = rec.QtyOnHand + adj.QtyChange
		if err := adj.Verify(); err != nil {
			return err
		}

		// 2. Append the trail entry
		insertQuery := `
            INSERT INTO stock_adjustments (
                id, stock_record_id, type, qty_change, qty_before, qty_after,
                reason, reference_type, reference_id, actor, created_at
            )
            VALUES (
                :id, :stock_record_id, :type, :qty_change, :qty_before, :qty_after,
                :reason, :reference_type, :reference_id, :actor, :created_at
            )
            RETURNING seq
        `
		q, args, err := sqlx.Named(insertQuery, adj)
		if err != nil {
			return err
		}
		if err := sqlx.GetContext(ctx, tx, &adj.Seq, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("failed to append adjustment: %w", err)
		}

		// 3. Move the counters
		updated, err = r.get(ctx, tx, `
            UPDATE stock_records
            SET qty_on_hand = $2,
                qty_reserved = qty_reserved + $3,
                updated_at = $4
            WHERE id = $1
            RETURNING *
        `, rec.ID, adj.QtyAfter, reservedDelta, adj.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to update stock record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PGRepository) ListAdjustments(ctx context.Context, f *dto.AdjustmentFilters) ([]model.Adjustment, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.StockRecordID != "" {
		conditions = append(conditions, "stock_record_id = :stock_record_id")
		args["stock_record_id"] = f.StockRecordID
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM stock_adjustments"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, r.DB, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query, listArgs, err := sqlx.Named(
		"SELECT * FROM stock_adjustments"+whereClause+" ORDER BY seq DESC"+postgres.Paginate(f.Page, f.PageSize), args)
	if err != nil {
		return nil, 0, err
	}
	var items []model.Adjustment
	if err := sqlx.SelectContext(ctx, r.DB, &items, r.DB.Rebind(query), listArgs...); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) AdjustmentsForRecord(ctx context.Context, stockRecordID string) ([]model.Adjustment, error) {
	var items []model.Adjustment
	err := sqlx.SelectContext(ctx, r.DB, &items,
		`SELECT * FROM stock_adjustments WHERE stock_record_id = $1 ORDER BY seq ASC`, stockRecordID)
	return items, err
}
