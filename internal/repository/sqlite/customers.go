package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"august/internal/domain"
	"august/internal/repository"
)

// Customers реализация CustomerRepository поверх Store
type Customers struct{ store *Store }

func NewCustomers(store *Store) *Customers { return &Customers{store: store} }

var _ repository.CustomerRepository = (*Customers)(nil)

func (r *Customers) Create(ctx context.Context, c *domain.Customer) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO customers (name, phone, email) VALUES (?, ?, ?)`,
		c.Name, c.Phone, c.Email)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *Customers) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, phone, email FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Customers) Update(ctx context.Context, c *domain.Customer) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE customers SET name = ?, phone = ?, email = ? WHERE id = ?`,
		c.Name, c.Phone, c.Email, c.ID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
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

func (r *Customers) Delete(ctx context.Context, id int64) error {
	var refs int64
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sales_orders WHERE customer_id = ?`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count customer orders: %w", err)
	}
	if refs > 0 {
		return repository.ErrCustomerHasOrders
	}
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
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

func (r *Customers) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT id, name, phone, email FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Customer, 0)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Customers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.q(ctx).QueryRowContext(ctx, `SELECT COUNT(1) FROM customers`).Scan(&n)
	return n, err
}
