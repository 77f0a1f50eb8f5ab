// Package sqlite provides a SQLite-backed implementation of the repository
// interfaces. The pure-Go modernc.org/sqlite driver is used to keep builds
// CGO-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"august/internal/repository"
)

// schema is the DDL executed once on Open. Prices are stored as TEXT and
// parsed with shopspring/decimal — REAL would reintroduce float rounding.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    sku    TEXT    NOT NULL UNIQUE,
    name   TEXT    NOT NULL,
    price  TEXT    NOT NULL,
    stock  INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
);

CREATE TABLE IF NOT EXISTS customers (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    name   TEXT    NOT NULL,
    phone  TEXT    NOT NULL DEFAULT '',
    email  TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sales_orders (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    number      TEXT    NOT NULL,
    customer_id INTEGER NOT NULL REFERENCES customers(id),
    status      TEXT    NOT NULL DEFAULT 'draft',
    created_at  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    INTEGER NOT NULL REFERENCES sales_orders(id) ON DELETE CASCADE,
    product_id  INTEGER NOT NULL REFERENCES products(id),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    unit_price  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id   ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product_id ON order_items(product_id);
`

// Store owns the database handle and the transaction boundary. The
// repositories (Products, Customers, Orders) are thin wrappers around it,
// mirroring the in-memory store layout.
type Store struct {
	db *sql.DB
}

var _ repository.TxManager = (*Store)(nil)

// Open opens (or creates) the SQLite database at the given path and applies
// the schema. WAL keeps readers from blocking the confirmation transaction,
// busy_timeout waits for locks instead of failing immediately and
// _txlock=immediate takes the write lock at BEGIN so two confirmations of
// the same product serialize instead of deadlocking.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// tx plumbing: the active *sql.Tx travels in the context so repository
// methods called inside WithTransaction share the transaction.
type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func (s *Store) q(ctx context.Context) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return s.db
}

// WithTransaction runs fn inside a database transaction. Nested calls reuse
// the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
