package catalog

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a product's publication state.
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusInactive Status = "inactive"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusActive, StatusDraft, StatusInactive}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Product is a catalog record. ID, SKU and CreatedAt never change after
// creation; UpdatedAt never moves backwards.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	ComparePrice  *float64  `json:"comparePrice,omitempty"`
	Category      string    `json:"category"`
	Stock         int       `json:"stock"`
	LowStockAlert *int      `json:"lowStockAlert,omitempty"`
	Status        Status    `json:"status"`
	SKU           string    `json:"sku"`
	Images        []string  `json:"images"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (p Product) Clone() Product {
	out := p
	if p.ComparePrice != nil {
		v := *p.ComparePrice
		out.ComparePrice = &v
	}
	if p.LowStockAlert != nil {
		v := *p.LowStockAlert
		out.LowStockAlert = &v
	}
	if p.Images != nil {
		out.Images = slices.Clone(p.Images)
	}
	return out
}

// FirstImage returns the first image reference, or "".
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// LowOnStock reports whether an alert threshold is set and stock is at or
// below it.
func (p Product) LowOnStock() bool {
	return p.LowStockAlert != nil && p.Stock <= *p.LowStockAlert
}

// Value is price × stock.
func (p Product) Value() decimal.Decimal {
	return decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Stock)))
}

func cloneAll(ps []Product) []Product {
	if ps == nil {
		return nil
	}
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
