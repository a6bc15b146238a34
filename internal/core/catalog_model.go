package core

import "time"

// Product is a stocked item. Quantity is the authoritative on-hand count and is mutated only
// by order transactions or a direct correction through UpdateProduct.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	CategoryID *string   `json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Category groups products for pendency reporting. ProductIDs is derived from
// products.category_id and is informational only.
type Category struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ProductIDs []string  `json:"product_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewProduct is the input for CreateProduct.
type NewProduct struct {
	Name       string  `json:"name" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gte=0,lte=2147483647"`
	CategoryID *string `json:"category_id"`
}

// ProductUpdate carries the optional fields of UpdateProduct. A nil field is left unchanged;
// a non-nil field is applied, so an explicit empty name is rejected rather than ignored.
type ProductUpdate struct {
	Name     *string `json:"name"`
	Quantity *int    `json:"quantity"`
}
