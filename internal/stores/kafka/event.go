package kafka

import "time"

const (
	TopicOrderPlaced   = `orders.order-placed`
	TopicStatusChanged = `orders.status-changed`
)

// OrderPlacedEvent is emitted once per line item after a placement commits.
type OrderPlacedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatusChangedEvent is emitted after an order status transition commits.
type StatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}
