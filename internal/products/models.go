package products

import "time"

// Stock status tiers derived from the quantity counter.
const (
	StatusInStock    = "in-stock"
	StatusLowStock   = "low-stock"
	StatusOutOfStock = "out-of-stock"

	// LowStockThreshold is the highest quantity still reported as low-stock.
	LowStockThreshold = 10
)

// StatusForQuantity maps a quantity to its status tier: >10 in-stock,
// 1-10 low-stock, 0 out-of-stock.
func StatusForQuantity(quantity int) string {
	switch {
	case quantity > LowStockThreshold:
		return StatusInStock
	case quantity >= 1:
		return StatusLowStock
	default:
		return StatusOutOfStock
	}
}

// Product is a retailer-owned catalog entry.
type Product struct {
	ID          string    `json:"id"`
	RetailerID  string    `json:"retailer_id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price" validate:"required,gt=0"`
	Quantity    int       `json:"quantity" validate:"min=0"`
	Status      string    `json:"status"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProduct is the creation payload.
type NewProduct struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Quantity    int     `json:"quantity" validate:"min=0"`
	ImageURL    string  `json:"image_url"`
}
