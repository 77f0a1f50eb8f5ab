package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар на складе. Stock меняется только при
// подтверждении заказа, не через CRUD.
type Product struct {
	ID    int64           `json:"id"`
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int64           `json:"stock"`
}

// Customer покупатель
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// OrderItem позиция в заказе. UnitPrice фиксируется в момент создания
// позиции и не пересчитывается при изменении цены товара.
type OrderItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SalesOrder сущность заказа. Статус переходит только draft -> confirmed.
type SalesOrder struct {
	ID         int64       `json:"id"`
	Number     string      `json:"number"`
	CustomerID int64       `json:"customer_id"`
	Items      []OrderItem `json:"items"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TotalAmount сумма заказа, вычисляется по позициям и нигде не хранится
func (o *SalesOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}
