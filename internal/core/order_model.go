package core

import "time"

// OrderType selects a receipt counter.
type OrderType string

const (
	OrderTypeSales    OrderType = "sales"
	OrderTypeDispatch OrderType = "dispatch"
)

// PurchaseOrder records inbound stock. It is immutable once created.
type PurchaseOrder struct {
	ID        string              `json:"id"`
	CreatedBy *string             `json:"created_by,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []PurchaseOrderItem `json:"items"`
}

type PurchaseOrderItem struct {
	ID          string `json:"id"`
	LineNumber  int    `json:"line_number"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"` // joined from products
	Quantity    int    `json:"quantity"`
}

// SalesOrder records client demand. IsDispatched flips false → true exactly once, when the
// order's dispatch order is completed.
type SalesOrder struct {
	ID           string           `json:"id"`
	PartyID      string           `json:"party_id"`
	PartyName    string           `json:"party_name"` // joined from parties
	ReceiptID    int64            `json:"receipt_id"`
	IsDispatched bool             `json:"is_dispatched"`
	DispatchedAt *time.Time       `json:"dispatched_at,omitempty"`
	CreatedBy    *string          `json:"created_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	Items        []SalesOrderItem `json:"items"`
}

type SalesOrderItem struct {
	ID          string `json:"id"`
	LineNumber  int    `json:"line_number"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"` // joined from products
	Quantity    int    `json:"quantity"`
}

// DispatchOrder allocates stock against one sales order. Stock is decremented when the
// dispatch is created; completion only assigns the vehicle and closes the sales order.
type DispatchOrder struct {
	ID            string              `json:"id"`
	SalesOrderID  string              `json:"sales_order_id"`
	ReceiptID     int64               `json:"receipt_id"`
	VehicleNumber *string             `json:"vehicle_number,omitempty"`
	IsCompleted   bool                `json:"is_completed"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CreatedBy     *string             `json:"created_by,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []DispatchOrderItem `json:"items"`
	// SalesOrder and Party are populated by ListDispatchOrders.
	SalesOrder *SalesOrder `json:"sales_order,omitempty"`
	Party      *Party      `json:"party,omitempty"`
}

// DispatchOrderItem keeps the product name as it was at dispatch time.
type DispatchOrderItem struct {
	ID          string `json:"id"`
	LineNumber  int    `json:"line_number"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// DispatchReceipt is the denormalized payload returned by CompleteDispatchOrder for receipt
// rendering.
type DispatchReceipt struct {
	Dispatch   DispatchOrder `json:"dispatch_order"`
	SalesOrder SalesOrder    `json:"sales_order"`
	Party      Party         `json:"party"`
}

// OrderItemInput is one line of a purchase or sales order.
type OrderItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type NewPurchaseOrder struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type NewSalesOrder struct {
	PartyID string           `json:"party_id" validate:"required,uuid"`
	Items   []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// DispatchItemInput is one line of a dispatch order. ProductName is the caller's snapshot of
// the product name for the printed receipt.
type DispatchItemInput struct {
	ProductID   string `json:"product_id" validate:"required,uuid"`
	ProductName string `json:"product_name" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type NewDispatchOrder struct {
	SalesOrderID  string              `json:"sales_order_id" validate:"required,uuid"`
	Items         []DispatchItemInput `json:"items" validate:"required,min=1,dive"`
	VehicleNumber *string             `json:"vehicle_number"`
}
