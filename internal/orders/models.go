package orders

import (
	"encoding/json"
	"time"
)

// Order statuses. Transitions between them are validated by CanTransition.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

const (
	DeliveryMethodDelivery = "delivery"
	DeliveryMethodPickup   = "pickup"
)

// Order is the header row plus its line items.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	Subtotal        float64         `json:"subtotal"`
	GSTAmount       float64         `json:"gst_amount"`
	ShippingAmount  float64         `json:"shipping_amount"`
	TotalAmount     float64         `json:"total_amount"`
	Status          string          `json:"status"`
	ShippingAddress json.RawMessage `json:"shipping_address"`
	PaymentDetails  json.RawMessage `json:"payment_details,omitempty"`
	DeliveryMethod  string          `json:"delivery_method"`
	PickupDatetime  *time.Time      `json:"pickup_datetime,omitempty"`
	Items           []OrderItem     `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem captures the price at purchase time, decoupled from the
// product's live price.
type OrderItem struct {
	ID              int64   `json:"id"`
	OrderID         string  `json:"order_id"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name,omitempty"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// NewOrder is everything the store persists atomically for one placement.
type NewOrder struct {
	ID              string
	OrderNumber     string
	UserID          string
	Subtotal        float64
	GSTAmount       float64
	ShippingAmount  float64
	TotalAmount     float64
	ShippingAddress json.RawMessage
	PaymentDetails  json.RawMessage
	DeliveryMethod  string
	PickupDatetime  *time.Time
	Items           []NewOrderItem
}

// NewOrderItem is one requested line of a placement.
type NewOrderItem struct {
	ProductID string
	Quantity  int
}

// PickupSchedule is one scheduled-pickup row, created per line item when
// the order's delivery method is pickup.
type PickupSchedule struct {
	ID             int64     `json:"id"`
	OrderID        string    `json:"order_id"`
	ProductID      string    `json:"product_id"`
	RetailerID     string    `json:"retailer_id"`
	PickupDatetime time.Time `json:"pickup_datetime"`
	CreatedAt      time.Time `json:"created_at"`
}

// StatusHistoryEntry is the append-only audit record of a status change.
type StatusHistoryEntry struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Comment   string    `json:"comment,omitempty"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}
