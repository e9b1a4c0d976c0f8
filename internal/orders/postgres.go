package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore implements Store against the orders tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &PostgresStore{db: db}, nil
}

// tierCase recomputes the status tier from the decremented quantity in the
// same statement that writes it.
const tierCase = `CASE
	WHEN quantity - $1 > 10 THEN 'in-stock'
	WHEN quantity - $1 >= 1 THEN 'low-stock'
	ELSE 'out-of-stock'
END`

// PlaceOrder persists a placement in one transaction. The conditional
// decrement (WHERE quantity >= requested) is the authority on
// availability, so concurrent placements cannot drive stock negative; the
// preceding read only supplies the product name and available count for
// the error message.
func (s *PostgresStore) PlaceOrder(ctx context.Context, no NewOrder) (Order, error) {
	var order Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		type productRow struct {
			name       string
			quantity   int
			price      float64
			retailerID string
		}
		productRows := make(map[string]productRow, len(no.Items))

		for _, item := range no.Items {
			var pr productRow
			err := tx.QueryRowContext(ctx,
				`SELECT name, quantity, price, retailer_id FROM products WHERE id = $1`,
				item.ProductID,
			).Scan(&pr.name, &pr.quantity, &pr.price, &pr.retailerID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
				}
				return fmt.Errorf("failed to query product: %w", err)
			}
			if pr.quantity < item.Quantity {
				return InsufficientStockError{ProductName: pr.name, Available: pr.quantity}
			}
			productRows[item.ProductID] = pr
		}

		queryInsertOrder := `
			INSERT INTO orders (id, order_number, user_id, subtotal, gst_amount, shipping_amount, total_amount,
				status, shipping_address, payment_details, delivery_method, pickup_datetime, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
			RETURNING created_at, updated_at
		`
		order = Order{
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
		}
		err := tx.QueryRowContext(ctx, queryInsertOrder,
			order.ID, order.OrderNumber, order.UserID, order.Subtotal, order.GSTAmount,
			order.ShippingAmount, order.TotalAmount, order.Status,
			nullableJSON(order.ShippingAddress), nullableJSON(order.PaymentDetails),
			order.DeliveryMethod, order.PickupDatetime,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range no.Items {
			pr := productRows[item.ProductID]

			oi := OrderItem{
				OrderID:         order.ID,
				ProductID:       item.ProductID,
				ProductName:     pr.name,
				Quantity:        item.Quantity,
				PriceAtPurchase: pr.price,
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				oi.OrderID, oi.ProductID, oi.Quantity, oi.PriceAtPurchase,
			).Scan(&oi.ID)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
			order.Items = append(order.Items, oi)

			res, err := tx.ExecContext(ctx,
				`UPDATE products
				 SET quantity = quantity - $1, status = `+tierCase+`, updated_at = NOW()
				 WHERE id = $2 AND quantity >= $1`,
				item.Quantity, item.ProductID)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if rows == 0 {
				// A concurrent placement won the stock between our read
				// and this update.
				return InsufficientStockError{ProductName: pr.name, Available: 0}
			}

			if no.DeliveryMethod == DeliveryMethodPickup && no.PickupDatetime != nil {
				_, err = tx.ExecContext(ctx,
					`INSERT INTO pickup_schedules (order_id, product_id, retailer_id, pickup_datetime, created_at)
					 VALUES ($1, $2, $3, $4, NOW())`,
					order.ID, item.ProductID, pr.retailerID, *no.PickupDatetime)
				if err != nil {
					return fmt.Errorf("failed to insert pickup schedule: %w", err)
				}
			}
		}

		// The source clears the whole cart after placement, not just the
		// ordered lines. Preserved deliberately.
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, no.UserID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *PostgresStore) GetOrderByID(ctx context.Context, id string) (Order, error) {
	order, err := s.scanOrder(s.db.QueryRowContext(ctx, selectOrder+` WHERE o.id = $1`, id))
	if err != nil {
		return Order{}, err
	}
	items, err := s.orderItems(ctx, id)
	if err != nil {
		return Order{}, err
	}
	order.Items = items
	return order, nil
}

const selectOrder = `
	SELECT o.id, o.order_number, o.user_id, o.subtotal, o.gst_amount, o.shipping_amount, o.total_amount,
		o.status, o.shipping_address, o.payment_details, o.delivery_method, o.pickup_datetime,
		o.created_at, o.updated_at
	FROM orders o
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOrder(row rowScanner) (Order, error) {
	var o Order
	var paymentDetails, shippingAddress []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Subtotal, &o.GSTAmount, &o.ShippingAmount, &o.TotalAmount,
		&o.Status, &shippingAddress, &paymentDetails, &o.DeliveryMethod, &o.PickupDatetime,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to scan order: %w", err)
	}
	o.ShippingAddress = shippingAddress
	o.PaymentDetails = paymentDetails
	return o, nil
}

func (s *PostgresStore) orderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price_at_purchase
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var oi OrderItem
		if err := rows.Scan(&oi.ID, &oi.OrderID, &oi.ProductID, &oi.ProductName, &oi.Quantity, &oi.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, oi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.listOrders(ctx, selectOrder+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
}

// ListOrdersByRetailer returns the orders containing at least one of the
// retailer's products.
func (s *PostgresStore) ListOrdersByRetailer(ctx context.Context, retailerID string) ([]Order, error) {
	query := selectOrder + `
		WHERE EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.retailer_id = $1
		)
		ORDER BY o.created_at DESC
	`
	return s.listOrders(ctx, query, retailerID)
}

func (s *PostgresStore) listOrders(ctx context.Context, query string, arg any) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range list {
		items, err := s.orderItems(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Items = items
	}
	return list, nil
}

func (s *PostgresStore) RetailerInOrder(ctx context.Context, orderID, retailerID string) (bool, error) {
	var involved bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = $1 AND p.retailer_id = $2
		)
	`, orderID, retailerID).Scan(&involved)
	if err != nil {
		return false, fmt.Errorf("failed to check order involvement: %w", err)
	}
	return involved, nil
}

// UpdateStatus writes the new status and, when a comment was supplied,
// appends the history row in the same transaction.
func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID, status, changedBy, comment string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, orderID)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}

		if comment != "" {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_status_history (order_id, status, comment, changed_by, created_at)
				 VALUES ($1, $2, $3, $4, NOW())`,
				orderID, status, comment, changedBy)
			if err != nil {
				return fmt.Errorf("failed to insert status history: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) History(ctx context.Context, orderID string) ([]StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, status, COALESCE(comment, ''), changed_by, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var history []StatusHistoryEntry
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Comment, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return history, nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
