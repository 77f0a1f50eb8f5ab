package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"august/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrSKUExists нарушение уникальности SKU товара
var ErrSKUExists = errors.New("sku already exists")

// ErrProductInUse товар нельзя удалить, пока на него ссылаются позиции заказов
var ErrProductInUse = errors.New("product is referenced by order items")

// ErrCustomerHasOrders покупателя нельзя удалить, пока у него есть заказы
var ErrCustomerHasOrders = errors.New("customer has orders")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	Count(ctx context.Context) (int64, error)
}

// CustomerRepository интерфейс репозитория покупателей
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Customer, error)
	Count(ctx context.Context) (int64, error)
}

// OrderRepository интерфейс репозитория заказов. Create сохраняет заказ
// вместе с позициями. ConfirmIfDraft — compare-and-swap статуса:
// переводит draft -> confirmed и сообщает, случился ли переход.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.SalesOrder) error
	GetByID(ctx context.Context, id int64) (*domain.SalesOrder, error)
	UpdateItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
	ConfirmIfDraft(ctx context.Context, orderID int64) (bool, error)
	List(ctx context.Context) ([]domain.SalesOrder, error)
	Count(ctx context.Context) (int64, error)
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка
// записи со снимком для отката, для sqlite — database/sql транзакция.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
