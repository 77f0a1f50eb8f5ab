package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"august/internal/domain"
	"august/internal/repository"
)

// OrderService реализует логику заказов: создание черновика с фиксацией цен,
// редактирование позиций и подтверждение со списанием остатков
type OrderService struct {
	products  repository.ProductRepository
	customers repository.CustomerRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
}

func NewOrderService(products repository.ProductRepository, customers repository.CustomerRepository, orders repository.OrderRepository, tx repository.TxManager) *OrderService {
	return &OrderService{products: products, customers: customers, orders: orders, tx: tx}
}

var (
	// ErrNoLineItems заказ без позиций подтвердить нельзя
	ErrNoLineItems = errors.New("order has no line items")
	// ErrInsufficientStock хотя бы по одной позиции не хватает остатка
	ErrInsufficientStock = errors.New("not enough stock")
	// ErrOrderConfirmed позиции подтверждённого заказа менять нельзя
	ErrOrderConfirmed = errors.New("order already confirmed")

	// потеря CAS-гонки внутри транзакции; наружу не выходит
	errConfirmRaced = errors.New("confirm raced")
)

func newOrderNumber() string {
	return "SO-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateOrder создаёт черновик заказа вместе с позициями. Цена каждой
// позиции фиксируется из текущей цены товара внутри той же транзакции;
// остатки при создании не трогаются.
func (s *OrderService) CreateOrder(ctx context.Context, customerID int64, items []domain.OrderItem) (*domain.SalesOrder, error) {
	if customerID <= 0 || len(items) == 0 {
		return nil, ErrInvalidInput
	}
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
	}

	var created *domain.SalesOrder
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.GetByID(ctx, customerID); err != nil {
			return err
		}
		lines := make([]domain.OrderItem, 0, len(items))
		for _, it := range items {
			p, err := s.products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			lines = append(lines, domain.OrderItem{
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			})
		}
		o := domain.SalesOrder{
			Number:     newOrderNumber(),
			CustomerID: customerID,
			Items:      lines,
			Status:     domain.OrderStatusDraft,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.SalesOrder, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

// ListOrders возвращает заказы, новые первыми
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.SalesOrder, error) {
	return s.orders.List(ctx)
}

func (s *OrderService) Count(ctx context.Context) (int64, error) {
	return s.orders.Count(ctx)
}

// ConfirmOrder подтверждает заказ: проверяет остатки по всем позициям и
// только потом атомарно списывает их и переводит статус draft -> confirmed.
// Повторное подтверждение — no-op. Любая ошибка откатывает транзакцию
// целиком, частичных списаний не бывает.
func (s *OrderService) ConfirmOrder(ctx context.Context, id int64) (*domain.SalesOrder, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == domain.OrderStatusConfirmed {
		return o, nil
	}

	var confirmed *domain.SalesOrder
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// re-read under the transaction: the pre-check above ran without a lock
		cur, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == domain.OrderStatusConfirmed {
			confirmed = cur
			return nil
		}
		if len(cur.Items) == 0 {
			return ErrNoLineItems
		}

		// validate every line before touching any stock; duplicate product
		// lines accumulate against one copy so the sum is checked
		byProduct := make(map[int64]*domain.Product, len(cur.Items))
		for _, it := range cur.Items {
			p := byProduct[it.ProductID]
			if p == nil {
				if p, err = s.products.GetByID(ctx, it.ProductID); err != nil {
					return err
				}
				byProduct[it.ProductID] = p
			}
			if it.Quantity > p.Stock {
				return fmt.Errorf("%w for %s", ErrInsufficientStock, p.Name)
			}
			p.Stock -= it.Quantity
		}

		// persist in increasing product id order to keep row locking stable
		ids := make([]int64, 0, len(byProduct))
		for pid := range byProduct {
			ids = append(ids, pid)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, pid := range ids {
			if err := s.products.Update(ctx, byProduct[pid]); err != nil {
				return err
			}
		}

		ok, err := s.orders.ConfirmIfDraft(ctx, cur.ID)
		if err != nil {
			return err
		}
		if !ok {
			// someone else confirmed between our read and the CAS; roll the
			// deduction back, their transaction already did it
			return errConfirmRaced
		}
		cur.Status = domain.OrderStatusConfirmed
		confirmed = cur
		return nil
	})
	if errors.Is(err, errConfirmRaced) {
		return s.orders.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// UpdateOrderItems заменяет позиции черновика. Существующие позиции (по id)
// сохраняют зафиксированную цену, новые получают текущую цену товара.
// Для подтверждённого заказа возвращает ErrOrderConfirmed.
func (s *OrderService) UpdateOrderItems(ctx context.Context, id int64, items []domain.OrderItem) (*domain.SalesOrder, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
	}

	var updated *domain.SalesOrder
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusConfirmed {
			return ErrOrderConfirmed
		}
		existing := make(map[int64]domain.OrderItem, len(o.Items))
		for _, it := range o.Items {
			existing[it.ID] = it
		}
		lines := make([]domain.OrderItem, 0, len(items))
		for _, it := range items {
			if prev, ok := existing[it.ID]; ok && prev.ProductID == it.ProductID {
				// keep the original price snapshot
				lines = append(lines, domain.OrderItem{
					ID:        it.ID,
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
					UnitPrice: prev.UnitPrice,
				})
				continue
			}
			p, err := s.products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			lines = append(lines, domain.OrderItem{
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			})
		}
		if err := s.orders.UpdateItems(ctx, o.ID, lines); err != nil {
			return err
		}
		updated, err = s.orders.GetByID(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
