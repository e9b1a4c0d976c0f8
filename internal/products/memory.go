package products

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]Product)}
}

func (s *MemoryStore) Insert(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Update(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []Product
	for _, p := range s.products {
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return nil, nil
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(list) {
		list = list[:f.Limit]
	}
	return list, nil
}

// DecrementIfAvailable applies the same conditional decrement as the order
// placement transaction: it subtracts quantity only when enough stock
// remains, recomputing the status tier, and reports whether it applied.
func (s *MemoryStore) DecrementIfAvailable(id string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Quantity < quantity {
		return false
	}
	p.Quantity -= quantity
	p.Status = StatusForQuantity(p.Quantity)
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return true
}
