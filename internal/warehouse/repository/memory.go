package repository

import (
	"context"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/warehouse/dto"
)

type MemoryRepository struct {
	conn *memory.Conn
}

func NewMemoryRepository(conn *memory.Conn) *MemoryRepository {
	return &MemoryRepository{conn: conn}
}

func (r *MemoryRepository) Create(_ context.Context, w *model.Warehouse) error {
	return r.conn.Do(func(s *memory.State) error {
		for _, existing := range s.Warehouses {
			if existing.Code == w.Code {
				return memory.ErrUniqueViolation
			}
			if w.IsDefault && existing.IsDefault {
				return memory.ErrUniqueViolation
			}
		}
		s.Warehouses[w.ID] = *w
		return nil
	})
}

func (r *MemoryRepository) find(match func(w *model.Warehouse) bool) (*model.Warehouse, error) {
	var found *model.Warehouse
	err := r.conn.Do(func(s *memory.State) error {
		for _, w := range s.Warehouses {
			w := w
			if match(&w) {
				found = &w
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*model.Warehouse, error) {
	return r.find(func(w *model.Warehouse) bool { return w.ID == id })
}

func (r *MemoryRepository) FindByCode(_ context.Context, code string) (*model.Warehouse, error) {
	code = model.NormalizeCode(code)
	return r.find(func(w *model.Warehouse) bool { return w.Code == code })
}

// The memory driver serializes whole transactions, so the lock variants are
// plain reads.
func (r *MemoryRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Warehouse, error) {
	return r.FindByID(ctx, id)
}

func (r *MemoryRepository) FindByIDForShare(ctx context.Context, id string) (*model.Warehouse, error) {
	return r.FindByID(ctx, id)
}

func (r *MemoryRepository) FindAll(_ context.Context, f *dto.WarehouseFilters) ([]model.Warehouse, int, error) {
	var items []model.Warehouse
	search := strings.ToLower(strings.TrimSpace(f.Search))
	err := r.conn.Do(func(s *memory.State) error {
		for _, w := range s.Warehouses {
			if f.IsActive != nil && w.IsActive != *f.IsActive {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(w.Code), search) &&
				!strings.Contains(strings.ToLower(w.Name), search) {
				continue
			}
			items = append(items, w)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	model.SortByPriority(items)
	total := len(items)
	return memory.Page(items, f.Page, f.PageSize), total, nil
}

func (r *MemoryRepository) FindActive(_ context.Context) ([]model.Warehouse, error) {
	var items []model.Warehouse
	err := r.conn.Do(func(s *memory.State) error {
		for _, w := range s.Warehouses {
			if w.IsActive {
				items = append(items, w)
			}
		}
		return nil
	})
	model.SortByPriority(items)
	return items, err
}

func (r *MemoryRepository) FindActiveForUpdate(ctx context.Context) ([]model.Warehouse, error) {
	return r.FindActive(ctx)
}

func (r *MemoryRepository) Update(_ context.Context, w *model.Warehouse) error {
	return r.conn.Do(func(s *memory.State) error {
		cur, ok := s.Warehouses[w.ID]
		if !ok {
			return nil
		}
		cur.Name = w.Name
		cur.Address = w.Address
		cur.Priority = w.Priority
		cur.UpdatedAt = w.UpdatedAt
		s.Warehouses[w.ID] = cur
		return nil
	})
}

func (r *MemoryRepository) SetActive(_ context.Context, id string, active bool) error {
	return r.conn.Do(func(s *memory.State) error {
		if w, ok := s.Warehouses[id]; ok {
			w.IsActive = active
			w.UpdatedAt = memory.Now()
			s.Warehouses[id] = w
		}
		return nil
	})
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	return r.conn.Do(func(s *memory.State) error {
		delete(s.Warehouses, id)
		return nil
	})
}

func (r *MemoryRepository) SetDefault(_ context.Context, id string) error {
	return r.conn.Do(func(s *memory.State) error {
		now := memory.Now()
		for key, w := range s.Warehouses {
			want := key == id
			if w.IsDefault != want {
				w.IsDefault = want
				w.UpdatedAt = now
				s.Warehouses[key] = w
			}
		}
		return nil
	})
}

// LockDefaults is a no-op: memory transactions already run one at a time.
func (r *MemoryRepository) LockDefaults(_ context.Context) error { return nil }

func (r *MemoryRepository) CountDefaults(_ context.Context) (int, error) {
	n := 0
	err := r.conn.Do(func(s *memory.State) error {
		for _, w := range s.Warehouses {
			if w.IsDefault {
				n++
			}
		}
		return nil
	})
	return n, err
}
