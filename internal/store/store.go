// Package store bundles the repositories of every domain behind one
// transaction boundary.
package store

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation"
	reservationRepo "github.com/fekuna/omnipos-inventory-service/internal/reservation/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/stock"
	stockRepo "github.com/fekuna/omnipos-inventory-service/internal/stock/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse"
	warehouseRepo "github.com/fekuna/omnipos-inventory-service/internal/warehouse/repository"
	"github.com/jmoiron/sqlx"
)

type Store struct {
	Warehouses   warehouse.Repository
	Stock        stock.Repository
	Reservations reservation.Repository

	withTx func(ctx context.Context, fn func(tx *Store) error) error
}

// WithTx runs fn against repositories bound to one transaction. Calling
// WithTx on a transaction store joins the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.withTx(ctx, fn)
}

func NewPostgres(db sqlx.ExtContext) *Store {
	s := newPGStore(db)
	s.withTx = func(ctx context.Context, fn func(tx *Store) error) error {
		return postgres.RunInTx(ctx, db, func(tx sqlx.ExtContext) error {
			txStore := newPGStore(tx)
			txStore.withTx = func(_ context.Context, inner func(tx *Store) error) error {
				return inner(txStore)
			}
			return fn(txStore)
		})
	}
	return s
}

func newPGStore(db sqlx.ExtContext) *Store {
	return &Store{
		Warehouses:   warehouseRepo.NewPGRepository(db),
		Stock:        stockRepo.NewPGRepository(db),
		Reservations: reservationRepo.NewPGRepository(db),
	}
}

func NewMemory() *Store {
	return newMemoryStore(memory.New().Conn())
}

func newMemoryStore(conn *memory.Conn) *Store {
	s := &Store{
		Warehouses:   warehouseRepo.NewMemoryRepository(conn),
		Stock:        stockRepo.NewMemoryRepository(conn),
		Reservations: reservationRepo.NewMemoryRepository(conn),
	}
	s.withTx = func(_ context.Context, fn func(tx *Store) error) error {
		if conn.InTx() {
			return fn(s)
		}
		return conn.RunInTx(func(tx *memory.Conn) error {
			return fn(newMemoryStore(tx))
		})
	}
	return s
}
