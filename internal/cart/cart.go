// Package cart persists customers' cart lines. One row per
// (user, product); placing an order clears the whole cart inside the
// placement transaction.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotInCart = errors.New("product not in cart")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// AddToCartDB upserts a cart line for the user, rejecting when the combined
// quantity would exceed the available stock the caller just read.
func (c *Conf) AddToCartDB(ctx context.Context, userID, productID string, quantity, stock int) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		queryCartItem := `
			SELECT id, quantity
			FROM cart_items
			WHERE user_id = $1 AND product_id = $2
			FOR UPDATE
		`
		var cartItemID int
		var existingQuantity int

		err := tx.QueryRowContext(ctx, queryCartItem, userID, productID).Scan(&cartItemID, &existingQuantity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if quantity > stock {
					return fmt.Errorf("insufficient stock: requested %d, available %d", quantity, stock)
				}
				queryAddCartItem := `
					INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
					VALUES ($1, $2, $3, NOW(), NOW())
				`
				_, err = tx.ExecContext(ctx, queryAddCartItem, userID, productID, quantity)
				if err != nil {
					return fmt.Errorf("failed to add product to cart: %w", err)
				}
				return nil
			}
			return fmt.Errorf("failed to query cart items: %w", err)
		}

		newQuantity := existingQuantity + quantity
		if newQuantity > stock {
			return fmt.Errorf("insufficient stock: requested %d, available %d", newQuantity, stock)
		}
		queryUpdateCartItem := `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			WHERE id = $2
		`
		_, err = tx.ExecContext(ctx, queryUpdateCartItem, newQuantity, cartItemID)
		if err != nil {
			return fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		return nil
	})
}

// GetActiveCartItems returns the user's cart lines with live product
// name/price joined in.
func (c *Conf) GetActiveCartItems(ctx context.Context, userID string) (*CartResponse, error) {
	queryItems := `
		SELECT ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at
	`
	rows, err := c.db.QueryContext(ctx, queryItems, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return &CartResponse{Items: items}, nil
}

// RemoveFromCart deletes one product's line from the user's cart.
func (c *Conf) RemoveFromCart(ctx context.Context, userID, productID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotInCart
	}
	return nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return fmt.Errorf("failed to execute withTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
