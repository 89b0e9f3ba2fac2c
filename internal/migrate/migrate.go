package migrate

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Options struct {
	CreateChecks      bool // CHECK constraints on counters and enums
	CreateIndexes     bool // unique and lookup indexes
	CreateForeignKeys bool
}

func DefaultOptions() Options {
	return Options{
		CreateChecks:      true,
		CreateIndexes:     true,
		CreateForeignKeys: true,
	}
}

type step struct {
	name string
	sql  string
}

var tables = []step{
	{"warehouses", `
CREATE TABLE IF NOT EXISTS warehouses (
    id                  TEXT PRIMARY KEY,
    code                TEXT NOT NULL,
    name                TEXT NOT NULL,
    address_line1       TEXT NOT NULL DEFAULT '',
    address_line2       TEXT NOT NULL DEFAULT '',
    address_city        TEXT NOT NULL DEFAULT '',
    address_region      TEXT NOT NULL DEFAULT '',
    address_postal_code TEXT NOT NULL DEFAULT '',
    address_country     TEXT NOT NULL DEFAULT '',
    is_active           BOOLEAN NOT NULL DEFAULT true,
    is_default          BOOLEAN NOT NULL DEFAULT false,
    priority            INTEGER NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"stock_records", `
CREATE TABLE IF NOT EXISTS stock_records (
    id                  TEXT PRIMARY KEY,
    product_ref         TEXT NOT NULL,
    variant_ref         TEXT NOT NULL,
    warehouse_id        TEXT NOT NULL,
    sku                 TEXT NOT NULL,
    qty_on_hand         BIGINT NOT NULL DEFAULT 0,
    qty_reserved        BIGINT NOT NULL DEFAULT 0,
    low_stock_threshold BIGINT NOT NULL DEFAULT 0,
    allow_backorder     BOOLEAN NOT NULL DEFAULT false,
    reorder_point       BIGINT NOT NULL DEFAULT 0,
    backorder_limit     BIGINT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"stock_adjustments", `
CREATE TABLE IF NOT EXISTS stock_adjustments (
    id              TEXT PRIMARY KEY,
    seq             BIGSERIAL NOT NULL,
    stock_record_id TEXT NOT NULL,
    type            TEXT NOT NULL,
    qty_change      BIGINT NOT NULL,
    qty_before      BIGINT NOT NULL,
    qty_after       BIGINT NOT NULL,
    reason          TEXT NOT NULL,
    reference_type  TEXT NOT NULL,
    reference_id    TEXT,
    actor           TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"reservations", `
CREATE TABLE IF NOT EXISTS reservations (
    id              TEXT PRIMARY KEY,
    stock_record_id TEXT NOT NULL,
    cart_ref        TEXT NOT NULL,
    order_ref       TEXT,
    quantity        BIGINT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'active',
    expires_at      TIMESTAMPTZ NOT NULL,
    closed_at       TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
}

var checks = []step{
	{"chk_stock_records_counters", `
ALTER TABLE stock_records
    DROP CONSTRAINT IF EXISTS chk_stock_records_counters,
    ADD CONSTRAINT chk_stock_records_counters
    CHECK (qty_on_hand >= 0 AND qty_reserved >= 0 AND low_stock_threshold >= 0
           AND reorder_point >= 0 AND backorder_limit >= 0)`},
	{"chk_adjustments_arithmetic", `
ALTER TABLE stock_adjustments
    DROP CONSTRAINT IF EXISTS chk_adjustments_arithmetic,
    ADD CONSTRAINT chk_adjustments_arithmetic
    CHECK (qty_after = qty_before + qty_change AND qty_after >= 0)`},
	{"chk_adjustments_type", `
ALTER TABLE stock_adjustments
    DROP CONSTRAINT IF EXISTS chk_adjustments_type,
    ADD CONSTRAINT chk_adjustments_type
    CHECK (type IN ('restock','sale','return','damage','correction')
           AND reference_type IN ('order','return','manual','system'))`},
	{"chk_reservations_quantity", `
ALTER TABLE reservations
    DROP CONSTRAINT IF EXISTS chk_reservations_quantity,
    ADD CONSTRAINT chk_reservations_quantity
    CHECK (quantity > 0)`},
	{"chk_reservations_status", `
ALTER TABLE reservations
    DROP CONSTRAINT IF EXISTS chk_reservations_status,
    ADD CONSTRAINT chk_reservations_status
    CHECK (status IN ('active','released','converted','expired'))`},
}

var indexes = []step{
	{"ux_warehouses_code", `CREATE UNIQUE INDEX IF NOT EXISTS ux_warehouses_code ON warehouses (code)`},
	// at most one default, enforced by the database itself
	{"ux_warehouses_single_default", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_warehouses_single_default
ON warehouses (is_default) WHERE is_default`},
	{"ix_warehouses_active_priority", `
CREATE INDEX IF NOT EXISTS ix_warehouses_active_priority
ON warehouses (priority, code) WHERE is_active`},
	{"ux_stock_records_identity", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_records_identity
ON stock_records (product_ref, variant_ref, warehouse_id)`},
	{"ux_stock_records_sku_warehouse", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_stock_records_sku_warehouse
ON stock_records (sku, warehouse_id)`},
	{"ix_stock_records_variant", `CREATE INDEX IF NOT EXISTS ix_stock_records_variant ON stock_records (variant_ref)`},
	{"ix_stock_records_warehouse", `CREATE INDEX IF NOT EXISTS ix_stock_records_warehouse ON stock_records (warehouse_id)`},
	{"ix_adjustments_record_seq", `
CREATE INDEX IF NOT EXISTS ix_adjustments_record_seq
ON stock_adjustments (stock_record_id, seq)`},
	{"ix_adjustments_reference", `
CREATE INDEX IF NOT EXISTS ix_adjustments_reference
ON stock_adjustments (reference_type, reference_id)`},
	{"ix_reservations_cart_active", `
CREATE INDEX IF NOT EXISTS ix_reservations_cart_active
ON reservations (cart_ref) WHERE status = 'active'`},
	{"ix_reservations_expiry_active", `
CREATE INDEX IF NOT EXISTS ix_reservations_expiry_active
ON reservations (expires_at) WHERE status = 'active'`},
	{"ix_reservations_record", `CREATE INDEX IF NOT EXISTS ix_reservations_record ON reservations (stock_record_id)`},
}

var foreignKeys = []step{
	// RESTRICT backs DeleteWarehouse refusing warehouses that hold stock.
	{"fk_stock_records_warehouse", `
ALTER TABLE stock_records
    DROP CONSTRAINT IF EXISTS fk_stock_records_warehouse,
    ADD CONSTRAINT fk_stock_records_warehouse
    FOREIGN KEY (warehouse_id) REFERENCES warehouses(id) ON DELETE RESTRICT`},
	{"fk_adjustments_stock_record", `
ALTER TABLE stock_adjustments
    DROP CONSTRAINT IF EXISTS fk_adjustments_stock_record,
    ADD CONSTRAINT fk_adjustments_stock_record
    FOREIGN KEY (stock_record_id) REFERENCES stock_records(id) ON DELETE RESTRICT`},
	{"fk_reservations_stock_record", `
ALTER TABLE reservations
    DROP CONSTRAINT IF EXISTS fk_reservations_stock_record,
    ADD CONSTRAINT fk_reservations_stock_record
    FOREIGN KEY (stock_record_id) REFERENCES stock_records(id) ON DELETE RESTRICT`},
}

// MigrateInventoryDB creates or updates the schema. Every statement is
// idempotent so it is safe to run on each deploy.
func MigrateInventoryDB(ctx context.Context, db sqlx.ExecerContext, log logger.ZapLogger, opt Options) error {
	log.Info("starting inventory schema migration")

	groups := []struct {
		label   string
		enabled bool
		steps   []step
	}{
		{"tables", true, tables},
		{"checks", opt.CreateChecks, checks},
		{"indexes", opt.CreateIndexes, indexes},
		{"foreign keys", opt.CreateForeignKeys, foreignKeys},
	}

	for _, g := range groups {
		if !g.enabled {
			continue
		}
		for _, s := range g.steps {
			if _, err := db.ExecContext(ctx, s.sql); err != nil {
				log.Error("migration step failed", zap.String("group", g.label), zap.String("step", s.name), zap.Error(err))
				return fmt.Errorf("migrate %s: %w", s.name, err)
			}
		}
		log.Info("migration group applied", zap.String("group", g.label), zap.Int("steps", len(g.steps)))
	}

	log.Info("inventory schema migration finished")
	return nil
}
