// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// MemoryCache is an in-process stand-in for the redis availability cache.
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string][]byte
	counters map[string]int64
	Hits     int

	// BeforeSet, when set, runs ahead of every SetJSON. Tests use it to
	// slip a write in between a reader's database read and its cache fill.
	BeforeSet func(key string)
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte), counters: make(map[string]int64)}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.Hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.BeforeSet != nil {
		c.BeforeSet(key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

func (c *MemoryCache) Versions(_ context.Context, keys ...string) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(keys))
	for i, k := range keys {
		out[i] = c.counters[k]
	}
	return out, nil
}

func (c *MemoryCache) Bump(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.counters[k]++
	}
	return nil
}

func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

type Published struct {
	Key   string
	Event interface{}
}

// Publisher records every event instead of sending it.
type Publisher struct {
	mu     sync.Mutex
	events []Published
}

func (p *Publisher) Publish(_ context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{Key: key, Event: event})
	return nil
}

func (p *Publisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, len(p.events))
	copy(out, p.events)
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
