package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresStore implements Store against the products table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p Product) (Product, error) {
	query := `
		INSERT INTO products (id, retailer_id, name, description, category, price, quantity, status, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.RetailerID, p.Name, p.Description, p.Category, p.Price, p.Quantity, p.Status, p.ImageURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Product, error) {
	query := `
		SELECT id, retailer_id, name, description, category, price, quantity, status, image_url, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.RetailerID, &p.Name, &p.Description, &p.Category,
		&p.Price, &p.Quantity, &p.Status, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p Product) (Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, category = $3, price = $4, quantity = $5, status = $6, image_url = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Category, p.Price, p.Quantity, p.Status, p.ImageURL, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// sortColumns whitelists sortable columns so List never interpolates raw
// user input into the query.
var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"quantity":   "quantity",
	"category":   "category",
	"created_at": "created_at",
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Product, error) {
	column, ok := sortColumns[f.Sort]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if strings.EqualFold(f.Order, "desc") {
		direction = "DESC"
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	query := fmt.Sprintf(`
		SELECT id, retailer_id, name, description, category, price, quantity, status, image_url, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%%' || $1 || '%%')
		  AND ($2 = '' OR category = $2)
		ORDER BY %s %s
		LIMIT $3 OFFSET $4
	`, column, direction)

	rows, err := s.db.QueryContext(ctx, query, f.Name, f.Category, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.RetailerID, &p.Name, &p.Description, &p.Category,
			&p.Price, &p.Quantity, &p.Status, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return list, nil
}
