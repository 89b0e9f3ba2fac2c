package repository

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/database/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/reservation/dto"
)

type MemoryRepository struct {
	conn *memory.Conn
}

func NewMemoryRepository(conn *memory.Conn) *MemoryRepository {
	return &MemoryRepository{conn: conn}
}

func (r *MemoryRepository) Create(_ context.Context, res *model.Reservation) error {
	return r.conn.Do(func(s *memory.State) error {
		if _, ok := s.Reservations[res.ID]; ok {
			return memory.ErrUniqueViolation
		}
		s.Reservations[res.ID] = *res
		return nil
	})
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	var found *model.Reservation
	err := r.conn.Do(func(s *memory.State) error {
		if res, ok := s.Reservations[id]; ok {
			found = &res
		}
		return nil
	})
	return found, err
}

func (r *MemoryRepository) filter(keep func(res *model.Reservation) bool) ([]model.Reservation, error) {
	var items []model.Reservation
	err := r.conn.Do(func(s *memory.State) error {
		for _, res := range s.Reservations {
			res := res
			if keep(&res) {
				items = append(items, res)
			}
		}
		return nil
	})
	return items, err
}

func byCreated(items []model.Reservation) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func (r *MemoryRepository) FindActiveByCart(_ context.Context, cartRef string) ([]model.Reservation, error) {
	items, err := r.filter(func(res *model.Reservation) bool {
		return res.CartRef == cartRef && res.Status == model.ReservationActive
	})
	byCreated(items)
	return items, err
}

func (r *MemoryRepository) FindActiveByCartAndRecord(ctx context.Context, cartRef, stockRecordID string) (*model.Reservation, error) {
	items, err := r.FindActiveByCart(ctx, cartRef)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].StockRecordID == stockRecordID {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) FindExpired(_ context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	items, err := r.filter(func(res *model.Reservation) bool { return res.IsExpired(now) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ExpiresAt.Before(items[j].ExpiresAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *MemoryRepository) FindAll(_ context.Context, f *dto.ReservationFilters) ([]model.Reservation, int, error) {
	items, err := r.filter(func(res *model.Reservation) bool {
		if f.CartRef != "" && res.CartRef != f.CartRef {
			return false
		}
		if f.OrderRef != "" && (res.OrderRef == nil || *res.OrderRef != f.OrderRef) {
			return false
		}
		if f.StockRecordID != "" && res.StockRecordID != f.StockRecordID {
			return false
		}
		if f.Status != "" && res.Status != f.Status {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	// newest first
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := len(items)
	return memory.Page(items, f.Page, f.PageSize), total, nil
}

func (r *MemoryRepository) CountActiveByWarehouse(_ context.Context, warehouseID string) (int, error) {
	n := 0
	err := r.conn.Do(func(s *memory.State) error {
		for _, res := range s.Reservations {
			if res.Status != model.ReservationActive {
				continue
			}
			if rec, ok := s.StockRecords[res.StockRecordID]; ok && rec.WarehouseID == warehouseID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *MemoryRepository) SumActiveByRecord(_ context.Context, stockRecordID string) (int64, error) {
	var n int64
	err := r.conn.Do(func(s *memory.State) error {
		for _, res := range s.Reservations {
			if res.Status == model.ReservationActive && res.StockRecordID == stockRecordID {
				n += res.Quantity
			}
		}
		return nil
	})
	return n, err
}

func (r *MemoryRepository) Transition(_ context.Context, id string, to model.ReservationStatus, orderRef *string, at time.Time) (bool, error) {
	moved := false
	err := r.conn.Do(func(s *memory.State) error {
		res, ok := s.Reservations[id]
		if !ok || res.Status != model.ReservationActive {
			return nil
		}
		res.Status = to
		if orderRef != nil {
			ref := *orderRef
			res.OrderRef = &ref
		}
		closed := at
		res.ClosedAt = &closed
		res.UpdatedAt = at
		s.Reservations[id] = res
		moved = true
		return nil
	})
	return moved, err
}

func (r *MemoryRepository) UpdateActive(_ context.Context, id string, quantity int64, expiresAt, at time.Time) (bool, error) {
	updated := false
	err := r.conn.Do(func(s *memory.State) error {
		res, ok := s.Reservations[id]
		if !ok || res.Status != model.ReservationActive {
			return nil
		}
		res.Quantity = quantity
		res.ExpiresAt = expiresAt
		res.UpdatedAt = at
		s.Reservations[id] = res
		updated = true
		return nil
	})
	return updated, err
}
