package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"august/internal/domain"
	"august/internal/repository"
)

// Orders реализация OrderRepository поверх Store
type Orders struct{ store *Store }

func NewOrders(store *Store) *Orders { return &Orders{store: store} }

var _ repository.OrderRepository = (*Orders)(nil)

// RFC3339 stored as TEXT, SQLite idiom
const timeLayout = time.RFC3339Nano

func (r *Orders) Create(ctx context.Context, o *domain.SalesOrder) error {
	o.CreatedAt = time.Now().UTC()
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO sales_orders (number, customer_id, status, created_at) VALUES (?, ?, ?, ?)`,
		o.Number, o.CustomerID, string(o.Status), o.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = id
	for i := range o.Items {
		if err := r.insertItem(ctx, o.ID, &o.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Orders) insertItem(ctx context.Context, orderID int64, it *domain.OrderItem) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)`,
		orderID, it.ProductID, it.Quantity, it.UnitPrice.String())
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = id
	return nil
}

func (r *Orders) GetByID(ctx context.Context, id int64) (*domain.SalesOrder, error) {
	var o domain.SalesOrder
	var status, createdAt string
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id, number, customer_id, status, created_at FROM sales_orders WHERE id = ?`, id).
		Scan(&o.ID, &o.Number, &o.CustomerID, &status, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if o.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if o.Items, err = r.itemsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Orders) itemsFor(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT id, product_id, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		var price string
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit_price: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateItems заменяет набор позиций заказа целиком. Позиции с ID сохраняют
// его, новые получают сгенерированный.
func (r *Orders) UpdateItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	var exists int64
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sales_orders WHERE id = ?`, orderID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	if _, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("clear order items: %w", err)
	}
	for i := range items {
		it := &items[i]
		if it.ID != 0 {
			if _, err := r.store.q(ctx).ExecContext(ctx,
				`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`,
				it.ID, orderID, it.ProductID, it.Quantity, it.UnitPrice.String()); err != nil {
				return fmt.Errorf("reinsert order item: %w", err)
			}
			continue
		}
		if err := r.insertItem(ctx, orderID, it); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmIfDraft compare-and-swap статуса заказа. Количество затронутых
// строк и есть сигнал успеха: 0 означает, что заказ уже подтверждён.
func (r *Orders) ConfirmIfDraft(ctx context.Context, orderID int64) (bool, error) {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE sales_orders SET status = ? WHERE id = ? AND status = ?`,
		string(domain.OrderStatusConfirmed), orderID, string(domain.OrderStatusDraft))
	if err != nil {
		return false, fmt.Errorf("confirm order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var exists int64
	if err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sales_orders WHERE id = ?`, orderID).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *Orders) List(ctx context.Context) ([]domain.SalesOrder, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT id, number, customer_id, status, created_at FROM sales_orders ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SalesOrder, 0)
	for rows.Next() {
		var o domain.SalesOrder
		var status, createdAt string
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerID, &status, &createdAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		if o.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.itemsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Orders) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.q(ctx).QueryRowContext(ctx, `SELECT COUNT(1) FROM sales_orders`).Scan(&n)
	return n, err
}
