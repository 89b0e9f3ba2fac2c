package model

import (
	"sort"
	"strings"
	"time"
)

type Address struct {
	Line1      string `db:"address_line1" json:"line1"`
	Line2      string `db:"address_line2" json:"line2"`
	City       string `db:"address_city" json:"city"`
	Region     string `db:"address_region" json:"region"`
	PostalCode string `db:"address_postal_code" json:"postal_code"`
	Country    string `db:"address_country" json:"country"`
}

// Warehouse is a fulfillment location. Lower Priority is preferred.
type Warehouse struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Address
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	Priority  int       `db:"priority" json:"priority"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SortByPriority orders warehouses the way reservations pick them:
// priority ascending, the default first on ties, then by code.
func SortByPriority(ws []Warehouse) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Priority != ws[j].Priority {
			return ws[i].Priority < ws[j].Priority
		}
		if ws[i].IsDefault != ws[j].IsDefault {
			return ws[i].IsDefault
		}
		return ws[i].Code < ws[j].Code
	})
}
