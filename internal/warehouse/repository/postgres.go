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
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
	"github.com/jmoiron/sqlx"
)

const activeOrder = ` ORDER BY priority ASC, is_default DESC, code ASC`

// defaultFlagLock is the advisory lock key taken by every default-flag swap.
const defaultFlagLock int64 = 0x696e765f646566

type PGRepository struct {
	DB sqlx.ExtContext
}

// NewPGRepository accepts either the pool or an open transaction.
func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, w *model.Warehouse) error {
	query := `
        INSERT INTO warehouses (
            id, code, name,
            address_line1, address_line2, address_city, address_region, address_postal_code, address_country,
            is_active, is_default, priority, created_at, updated_at
        )
        VALUES (
            :id, :code, :name,
            :address_line1, :address_line2, :address_city, :address_region, :address_postal_code, :address_country,
            :is_active, :is_default, :priority, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, w); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("warehouse: %w", apperr.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (r *PGRepository) get(ctx context.Context, query string, args ...interface{}) (*model.Warehouse, error) {
	var w model.Warehouse
	err := sqlx.GetContext(ctx, r.DB, &w, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Warehouse, error) {
	return r.get(ctx, `SELECT * FROM warehouses WHERE id = $1`, id)
}

func (r *PGRepository) FindByCode(ctx context.Context, code string) (*model.Warehouse, error) {
	return r.get(ctx, `SELECT * FROM warehouses WHERE code = $1`, model.NormalizeCode(code))
}

func (r *PGRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Warehouse, error) {
	return r.get(ctx, `SELECT * FROM warehouses WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) FindByIDForShare(ctx context.Context, id string) (*model.Warehouse, error) {
	return r.get(ctx, `SELECT * FROM warehouses WHERE id = $1 FOR SHARE`, id)
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.WarehouseFilters) ([]model.Warehouse, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conditions = append(conditions, "(code ILIKE :search OR name ILIKE :search)")
		args["search"] = "%" + s + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM warehouses"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := sqlx.GetContext(ctx, r.DB, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query, listArgs, err := sqlx.Named("SELECT * FROM warehouses"+whereClause+activeOrder+postgres.Paginate(f.Page, f.PageSize), args)
	if err != nil {
		return nil, 0, err
	}
	var items []model.Warehouse
	if err := sqlx.SelectContext(ctx, r.DB, &items, r.DB.Rebind(query), listArgs...); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) FindActive(ctx context.Context) ([]model.Warehouse, error) {
	var items []model.Warehouse
	err := sqlx.SelectContext(ctx, r.DB, &items, `SELECT * FROM warehouses WHERE is_active`+activeOrder)
	return items, err
}

func (r *PGRepository) FindActiveForUpdate(ctx context.Context) ([]model.Warehouse, error) {
	var items []model.Warehouse
	err := sqlx.SelectContext(ctx, r.DB, &items, `SELECT * FROM warehouses WHERE is_active`+activeOrder+` FOR UPDATE`)
	return items, err
}

func (r *PGRepository) Update(ctx context.Context, w *model.Warehouse) error {
	query := `
        UPDATE warehouses
        SET name = :name,
            address_line1 = :address_line1,
            address_line2 = :address_line2,
            address_city = :address_city,
            address_region = :address_region,
            address_postal_code = :address_postal_code,
            address_country = :address_country,
            priority = :priority,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, r.DB, query, w)
	return err
}

func (r *PGRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE warehouses SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	return err
}

func (r *PGRepository) SetDefault(ctx context.Context, id string) error {
	// Two statements: ux_warehouses_single_default is checked per row, so the
	// old default has to be cleared before the new one is set.
	return postgres.RunInTx(ctx, r.DB, func(tx sqlx.ExtContext) error {
		if err := (&PGRepository{DB: tx}).LockDefaults(ctx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE warehouses SET is_default = false, updated_at = now() WHERE is_default AND id <> $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE warehouses SET is_default = true, updated_at = now() WHERE id = $1`, id)
		return err
	})
}

// LockDefaults takes a transaction-scoped advisory lock. A row lock on the
// old default is not enough: a waiter's snapshot misses a default set while
// it waited, and its insert then trips ux_warehouses_single_default.
func (r *PGRepository) LockDefaults(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, defaultFlagLock)
	return err
}

func (r *PGRepository) CountDefaults(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.DB, &n, `SELECT count(*) FROM warehouses WHERE is_default`)
	return n, err
}
