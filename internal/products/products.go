// Package products manages the retailer-owned catalog and its stock tiers.
package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("product not found")
	// ErrNotOwner is returned when a retailer mutates a product owned by
	// someone else.
	ErrNotOwner = errors.New("product not owned by caller")
)

// Store is the persistence boundary for products. The Postgres
// implementation backs production; the memory implementation backs tests.
type Store interface {
	Insert(ctx context.Context, p Product) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]Product, error)
}

// ListFilter narrows and pages List results.
type ListFilter struct {
	Name     string
	Category string
	Limit    int
	Offset   int
	Sort     string
	Order    string
}

// Conf wraps the Store interface so handlers depend on a struct rather than
// the connection type directly.
type Conf struct {
	Store
}

func NewConf(s Store) (Conf, error) {
	if s == nil {
		return Conf{}, fmt.Errorf("store is nil")
	}
	return Conf{Store: s}, nil
}

// InsertProduct creates a product for the retailer, deriving its status
// tier from the initial quantity.
func (c *Conf) InsertProduct(ctx context.Context, retailerID string, np NewProduct) (Product, error) {
	p := Product{
		ID:          uuid.NewString(),
		RetailerID:  retailerID,
		Name:        np.Name,
		Description: np.Description,
		Category:    np.Category,
		Price:       np.Price,
		Quantity:    np.Quantity,
		Status:      StatusForQuantity(np.Quantity),
		ImageURL:    np.ImageURL,
	}
	inserted, err := c.Insert(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return inserted, nil
}

// UpdateProduct overwrites the product's mutable fields after checking the
// caller owns it, recomputing the status tier from the new quantity.
func (c *Conf) UpdateProduct(ctx context.Context, retailerID, productID string, updated Product) (Product, error) {
	current, err := c.GetByID(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if current.RetailerID != retailerID {
		return Product{}, ErrNotOwner
	}

	updated.ID = productID
	updated.RetailerID = current.RetailerID
	updated.CreatedAt = current.CreatedAt
	updated.Status = StatusForQuantity(updated.Quantity)

	p, err := c.Update(ctx, updated)
	if err != nil {
		return Product{}, fmt.Errorf("updating product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes the product after checking the caller owns it.
func (c *Conf) DeleteProduct(ctx context.Context, retailerID, productID string) error {
	current, err := c.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if current.RetailerID != retailerID {
		return ErrNotOwner
	}
	return c.Delete(ctx, productID)
}
