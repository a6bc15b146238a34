package core

import "time"

// PendencyRow is a per-product shortfall: open demand that on-hand stock cannot cover.
type PendencyRow struct {
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"` // joined from products
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"` // joined from categories
	RequiredQty  int       `json:"required_qty"`
	AvailableQty int       `json:"available_qty"`
	DeficitQty   int       `json:"deficit_qty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// stockPosition is the reconciler's view of one product.
type stockPosition struct {
	productID  string
	categoryID *string
	quantity   int
}

// computePendency derives the pendency rows from stock positions and open demand per product.
// Rows are emitted only for categorized products whose demand exceeds stock, in the order of
// positions.
func computePendency(positions []stockPosition, demand map[string]int) []PendencyRow {
	var rows []PendencyRow
	for _, p := range positions {
		required := demand[p.productID]
		deficit := required - p.quantity
		if deficit <= 0 || p.categoryID == nil {
			continue
		}
		rows = append(rows, PendencyRow{
			ProductID:    p.productID,
			CategoryID:   *p.categoryID,
			RequiredQty:  required,
			AvailableQty: p.quantity,
			DeficitQty:   deficit,
		})
	}
	return rows
}
