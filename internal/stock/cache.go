package stock

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
)

const (
	availabilityKeyPrefix = "inventory:availability:"
	versionKeyPrefix      = "inventory:availability-version:"
	epochKey              = "inventory:availability-epoch"
)

// AvailabilityCache is the read-through cache in front of GetAvailability.
// It is optional; a nil cache disables caching.
type AvailabilityCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	// Versions reads integer counters; a missing key reads as zero.
	Versions(ctx context.Context, keys ...string) ([]int64, error)
	Bump(ctx context.Context, keys ...string) error
}

func AvailabilityKey(locator string) string {
	return availabilityKeyPrefix + locator
}

func versionKey(locator string) string {
	return versionKeyPrefix + locator
}

// AvailabilityKeys lists every cached entry a change to rec can affect.
func AvailabilityKeys(rec *model.StockRecord) []string {
	keys := []string{AvailabilityKey(rec.SKU)}
	if rec.VariantRef != "" && rec.VariantRef != rec.SKU {
		keys = append(keys, AvailabilityKey(rec.VariantRef))
	}
	return keys
}

func locators(rec *model.StockRecord) []string {
	out := []string{rec.SKU}
	if rec.VariantRef != "" && rec.VariantRef != rec.SKU {
		out = append(out, rec.VariantRef)
	}
	return out
}

// AvailabilityStamp names the cache generation a value was computed in. A
// reader takes it before reading the database; an entry whose stamp no
// longer matches was computed before a later change and is ignored.
type AvailabilityStamp struct {
	Version int64 `json:"version"`
	Epoch   int64 `json:"epoch"`
}

type cachedAvailability struct {
	Stamp AvailabilityStamp `json:"stamp"`
	Value *dto.Availability `json:"value"`
}

func StampAvailability(ctx context.Context, cache AvailabilityCache, locator string) (AvailabilityStamp, error) {
	v, err := cache.Versions(ctx, versionKey(locator), epochKey)
	if err != nil {
		return AvailabilityStamp{}, err
	}
	return AvailabilityStamp{Version: v[0], Epoch: v[1]}, nil
}

// LoadAvailability returns the cached value only if it carries stamp.
func LoadAvailability(ctx context.Context, cache AvailabilityCache, locator string, stamp AvailabilityStamp) (*dto.Availability, bool, error) {
	var entry cachedAvailability
	hit, err := cache.GetJSON(ctx, AvailabilityKey(locator), &entry)
	if err != nil || !hit {
		return nil, false, err
	}
	if entry.Stamp != stamp || entry.Value == nil {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func StoreAvailability(ctx context.Context, cache AvailabilityCache, locator string, stamp AvailabilityStamp, value *dto.Availability, ttl time.Duration) error {
	return cache.SetJSON(ctx, AvailabilityKey(locator), cachedAvailability{Stamp: stamp, Value: value}, ttl)
}

// InvalidateAvailability runs after a change to rec has committed. The
// version bump retires values that readers are still computing from
// pre-commit data.
func InvalidateAvailability(ctx context.Context, cache AvailabilityCache, rec *model.StockRecord) error {
	if cache == nil || rec == nil {
		return nil
	}
	locs := locators(rec)
	versions := make([]string, len(locs))
	for i, l := range locs {
		versions[i] = versionKey(l)
	}
	if err := cache.Bump(ctx, versions...); err != nil {
		return err
	}
	return cache.Delete(ctx, AvailabilityKeys(rec)...)
}

// FlushAvailability drops every cached availability entry. Used when a
// warehouse changes state and any locator may be affected.
func FlushAvailability(ctx context.Context, cache AvailabilityCache) error {
	if cache == nil {
		return nil
	}
	if err := cache.Bump(ctx, epochKey); err != nil {
		return err
	}
	return cache.DeleteByPrefix(ctx, availabilityKeyPrefix)
}
