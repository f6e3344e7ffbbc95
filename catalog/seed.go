package catalog

import "time"

// Seed returns the demonstration catalog used when nothing is stored yet.
func Seed(now time.Time) []Product {
	compare := 120.00
	return []Product{
		{
			ID:           "PRD001",
			Name:         "Cotton T-Shirt",
			Description:  "A comfortable and classic cotton t-shirt.",
			Price:        99.00,
			ComparePrice: &compare,
			Category:     "Clothing",
			Stock:        50,
			Status:       StatusActive,
			SKU:          "CTTS-001",
			Images:       []string{},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:          "PRD002",
			Name:        "Denim Jeans",
			Description: "Classic blue denim jeans.",
			Price:       24.00,
			Category:    "Clothing",
			Stock:       30,
			Status:      StatusActive,
			SKU:         "DNJNS-002",
			Images:      []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}
