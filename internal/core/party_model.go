package core

import "time"

// Party is a client that places sales orders.
type Party struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ContactNumber string       `json:"contact_number"`
	SalesOrders   []SalesOrder `json:"sales_orders,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewParty is the input for CreateParty.
type NewParty struct {
	Name          string `json:"name" validate:"required"`
	ContactNumber string `json:"contact_number" validate:"required"`
}

// PartyUpdate carries the optional fields of UpdateParty; nil means "leave unchanged".
type PartyUpdate struct {
	Name          *string `json:"name"`
	ContactNumber *string `json:"contact_number"`
}
