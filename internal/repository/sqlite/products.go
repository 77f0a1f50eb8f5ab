package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"august/internal/domain"
	"august/internal/repository"
)

// Products реализация ProductRepository поверх Store
type Products struct{ store *Store }

func NewProducts(store *Store) *Products { return &Products{store: store} }

var _ repository.ProductRepository = (*Products)(nil)

func (r *Products) Create(ctx context.Context, p *domain.Product) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO products (sku, name, price, stock) VALUES (?, ?, ?, ?)`,
		p.SKU, p.Name, p.Price.String(), p.Stock)
	if err != nil {
		if isUniqueViolation(err, "products.sku") {
			return repository.ErrSKUExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *Products) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id, sku, name, price, stock FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (r *Products) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE products SET sku = ?, name = ?, price = ?, stock = ? WHERE id = ?`,
		p.SKU, p.Name, p.Price.String(), p.Stock, p.ID)
	if err != nil {
		if isUniqueViolation(err, "products.sku") {
			return repository.ErrSKUExists
		}
		return fmt.Errorf("update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Products) Delete(ctx context.Context, id int64) error {
	var refs int64
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM order_items WHERE product_id = ?`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count product refs: %w", err)
	}
	if refs > 0 {
		return repository.ErrProductInUse
	}
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Products) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	query := `SELECT id, sku, name, price, stock FROM products WHERE 1=1`
	args := make([]any, 0, 3)
	if f.NameSubstring != "" {
		query += ` AND name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+f.NameSubstring+"%")
	}
	// prices are stored exactly as TEXT; CAST to REAL is good enough for
	// range filtering
	if f.MinPrice != nil {
		query += ` AND CAST(price AS REAL) >= ?`
		args = append(args, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		query += ` AND CAST(price AS REAL) <= ?`
		args = append(args, f.MaxPrice.InexactFloat64())
	}
	query += ` ORDER BY sku`

	rows, err := r.store.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		var price string
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &price, &p.Stock); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Products) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.q(ctx).QueryRowContext(ctx, `SELECT COUNT(1) FROM products`).Scan(&n)
	return n, err
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	var price string
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &price, &p.Stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &p, nil
}
