// Package memory is the in-process storage driver. It backs the test suites
// and STORAGE_DRIVER=memory; every repository shares one DB so a
// transaction can span warehouses, stock and reservations.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type State struct {
	Warehouses    map[string]model.Warehouse
	StockRecords  map[string]model.StockRecord
	Adjustments   []model.Adjustment
	Reservations  map[string]model.Reservation
	AdjustmentSeq int64
}

func newState() *State {
	return &State{
		Warehouses:   map[string]model.Warehouse{},
		StockRecords: map[string]model.StockRecord{},
		Reservations: map[string]model.Reservation{},
	}
}

func (s *State) clone() *State {
	c := &State{
		Warehouses:    make(map[string]model.Warehouse, len(s.Warehouses)),
		StockRecords:  make(map[string]model.StockRecord, len(s.StockRecords)),
		Adjustments:   make([]model.Adjustment, len(s.Adjustments)),
		Reservations:  make(map[string]model.Reservation, len(s.Reservations)),
		AdjustmentSeq: s.AdjustmentSeq,
	}
	for k, v := range s.Warehouses {
		c.Warehouses[k] = v
	}
	for k, v := range s.StockRecords {
		c.StockRecords[k] = v
	}
	copy(c.Adjustments, s.Adjustments)
	for k, v := range s.Reservations {
		c.Reservations[k] = v
	}
	return c
}

type DB struct {
	mu    sync.Mutex
	state *State
}

func New() *DB {
	return &DB{state: newState()}
}

// Conn is what a repository reads and writes through. A plain Conn takes
// the lock per call; a transaction Conn runs under the lock its
// transaction already holds.
type Conn struct {
	db   *DB
	inTx bool
}

func (db *DB) Conn() *Conn {
	return &Conn{db: db}
}

func (c *Conn) InTx() bool { return c.inTx }

func (c *Conn) Do(fn func(s *State) error) error {
	if !c.inTx {
		c.db.mu.Lock()
		defer c.db.mu.Unlock()
	}
	return fn(c.db.state)
}

// RunInTx serializes fn against every other caller and restores the
// previous state if fn fails. Nested calls on a transaction Conn join it.
func (c *Conn) RunInTx(fn func(tx *Conn) error) error {
	if c.inTx {
		return fn(c)
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	snapshot := c.db.state.clone()
	if err := fn(&Conn{db: c.db, inTx: true}); err != nil {
		c.db.state = snapshot
		return err
	}
	return nil
}

// ErrUniqueViolation mirrors the unique indexes of the SQL schema.
var ErrUniqueViolation = fmt.Errorf("%w: unique constraint", apperr.ErrAlreadyExists)

// Now is the clock used for updated_at columns the database would stamp.
var Now = func() time.Time { return time.Now().UTC() }

// Page applies 1-based LIMIT/OFFSET semantics to an already sorted slice.
func Page[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
