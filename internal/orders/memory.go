package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/products"
)

// MemoryStore is an in-memory Store with the same atomicity semantics as
// the Postgres implementation: a placement either applies fully or not at
// all, and stock can never go negative. Used by tests and local
// development.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]products.Product
	carts    map[string]map[string]int
	orders   map[string]Order
	history  map[string][]StatusHistoryEntry
	pickups  []PickupSchedule
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]products.Product),
		carts:    make(map[string]map[string]int),
		orders:   make(map[string]Order),
		history:  make(map[string][]StatusHistoryEntry),
	}
}

// SeedProduct loads a product into the store.
func (s *MemoryStore) SeedProduct(p products.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Status == "" {
		p.Status = products.StatusForQuantity(p.Quantity)
	}
	s.products[p.ID] = p
}

// Product returns the current state of a seeded product.
func (s *MemoryStore) Product(id string) (products.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// AddCartLine loads a cart line for a user.
func (s *MemoryStore) AddCartLine(userID, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = make(map[string]int)
	}
	s.carts[userID][productID] += quantity
}

// CartSize returns how many lines remain in a user's cart.
func (s *MemoryStore) CartSize(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[userID])
}

// Pickups returns the scheduled-pickup rows created so far.
func (s *MemoryStore) Pickups() []PickupSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PickupSchedule, len(s.pickups))
	copy(out, s.pickups)
	return out
}

// OrderCount returns the number of order headers in the store.
func (s *MemoryStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *MemoryStore) PlaceOrder(ctx context.Context, no NewOrder) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before mutating anything, mirroring the
	// all-or-nothing transaction.
	for _, item := range no.Items {
		p, ok := s.products[item.ProductID]
		if !ok {
			return Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if p.Quantity < item.Quantity {
			return Order{}, InsufficientStockError{ProductName: p.Name, Available: p.Quantity}
		}
	}

	now := time.Now().UTC()
	order := Order{
		ID:              no.ID,
		OrderNumber:     no.OrderNumber,
		UserID:          no.UserID,
		Subtotal:        no.Subtotal,
		GSTAmount:       no.GSTAmount,
		ShippingAmount:  no.ShippingAmount,
		TotalAmount:     no.TotalAmount,
		Status:          StatusPending,
		ShippingAddress: no.ShippingAddress,
		PaymentDetails:  no.PaymentDetails,
		DeliveryMethod:  no.DeliveryMethod,
		PickupDatetime:  no.PickupDatetime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range no.Items {
		p := s.products[item.ProductID]
		s.nextID++
		order.Items = append(order.Items, OrderItem{
			ID:              s.nextID,
			OrderID:         order.ID,
			ProductID:       item.ProductID,
			ProductName:     p.Name,
			Quantity:        item.Quantity,
			PriceAtPurchase: p.Price,
		})

		p.Quantity -= item.Quantity
		p.Status = products.StatusForQuantity(p.Quantity)
		s.products[item.ProductID] = p

		if no.DeliveryMethod == DeliveryMethodPickup && no.PickupDatetime != nil {
			s.nextID++
			s.pickups = append(s.pickups, PickupSchedule{
				ID:             s.nextID,
				OrderID:        order.ID,
				ProductID:      item.ProductID,
				RetailerID:     p.RetailerID,
				PickupDatetime: *no.PickupDatetime,
				CreatedAt:      now,
			})
		}
	}

	delete(s.carts, no.UserID)
	s.orders[order.ID] = order
	return order, nil
}

func (s *MemoryStore) GetOrderByID(ctx context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) ListOrdersByRetailer(ctx context.Context, retailerID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Order
	for _, o := range s.orders {
		if s.retailerInOrderLocked(o, retailerID) {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *MemoryStore) RetailerInOrder(ctx context.Context, orderID, retailerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return false, ErrNotFound
	}
	return s.retailerInOrderLocked(order, retailerID), nil
}

func (s *MemoryStore) retailerInOrderLocked(order Order, retailerID string) bool {
	for _, item := range order.Items {
		if p, ok := s.products[item.ProductID]; ok && p.RetailerID == retailerID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, orderID, status, changedBy, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = order

	if comment != "" {
		s.nextID++
		s.history[orderID] = append(s.history[orderID], StatusHistoryEntry{
			ID:        s.nextID,
			OrderID:   orderID,
			Status:    status,
			Comment:   comment,
			ChangedBy: changedBy,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}

func (s *MemoryStore) History(ctx context.Context, orderID string) ([]StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusHistoryEntry, len(s.history[orderID]))
	copy(out, s.history[orderID])
	return out, nil
}
