package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"august/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu            sync.RWMutex
	nextProdID    int64
	nextCustID    int64
	nextOrderID   int64
	nextItemID    int64
	productsByID  map[int64]domain.Product
	customersByID map[int64]domain.Customer
	ordersByID    map[int64]domain.SalesOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:    1,
		nextCustID:    1,
		nextOrderID:   1,
		nextItemID:    1,
		productsByID:  make(map[int64]domain.Product),
		customersByID: make(map[int64]domain.Customer),
		ordersByID:    make(map[int64]domain.SalesOrder),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

func copyOrder(o domain.SalesOrder) domain.SalesOrder {
	cp := o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return cp
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// CustomerRepository и OrderRepository реализованы отдельными типами
// MemoryCustomers и MemoryOrders

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	for _, ex := range m.productsByID {
		if ex.SKU == p.SKU {
			return ErrSKUExists
		}
	}
	p.ID = m.nextProdID
	m.nextProdID++
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	for _, ex := range m.productsByID {
		if ex.SKU == p.SKU && ex.ID != p.ID {
			return ErrSKUExists
		}
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	for _, o := range m.ordersByID {
		for _, it := range o.Items {
			if it.ProductID == id {
				return ErrProductInUse
			}
		}
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return int64(len(m.productsByID)), nil
}

// CustomerRepository implementation on wrapper type
type MemoryCustomers struct{ store *MemoryStore }

func NewMemoryCustomers(store *MemoryStore) *MemoryCustomers { return &MemoryCustomers{store: store} }

var _ CustomerRepository = (*MemoryCustomers)(nil)

func (mc *MemoryCustomers) Create(ctx context.Context, c *domain.Customer) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	c.ID = mc.store.nextCustID
	mc.store.nextCustID++
	mc.store.customersByID[c.ID] = *c
	return nil
}

func (mc *MemoryCustomers) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.customersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (mc *MemoryCustomers) Update(ctx context.Context, c *domain.Customer) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.customersByID[c.ID]; !ok {
		return ErrNotFound
	}
	mc.store.customersByID[c.ID] = *c
	return nil
}

func (mc *MemoryCustomers) Delete(ctx context.Context, id int64) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.customersByID[id]; !ok {
		return ErrNotFound
	}
	for _, o := range mc.store.ordersByID {
		if o.CustomerID == id {
			return ErrCustomerHasOrders
		}
	}
	delete(mc.store.customersByID, id)
	return nil
}

func (mc *MemoryCustomers) List(ctx context.Context) ([]domain.Customer, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	out := make([]domain.Customer, 0, len(mc.store.customersByID))
	for _, c := range mc.store.customersByID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (mc *MemoryCustomers) Count(ctx context.Context) (int64, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	return int64(len(mc.store.customersByID)), nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.SalesOrder) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	for i := range o.Items {
		o.Items[i].ID = mo.store.nextItemID
		mo.store.nextItemID++
	}
	o.CreatedAt = time.Now().UTC()
	mo.store.ordersByID[o.ID] = copyOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.SalesOrder, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) UpdateItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[orderID]
	if !ok {
		return ErrNotFound
	}
	cp := append([]domain.OrderItem(nil), items...)
	for i := range cp {
		if cp[i].ID == 0 {
			cp[i].ID = mo.store.nextItemID
			mo.store.nextItemID++
		}
	}
	o.Items = cp
	mo.store.ordersByID[orderID] = o
	return nil
}

func (mo *MemoryOrders) ConfirmIfDraft(ctx context.Context, orderID int64) (bool, error) {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[orderID]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != domain.OrderStatusDraft {
		return false, nil
	}
	o.Status = domain.OrderStatusConfirmed
	mo.store.ordersByID[orderID] = o
	return true, nil
}

func (mo *MemoryOrders) List(ctx context.Context) ([]domain.SalesOrder, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.SalesOrder, 0, len(mo.store.ordersByID))
	for _, o := range mo.store.ordersByID {
		out = append(out, copyOrder(o))
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (mo *MemoryOrders) Count(ctx context.Context) (int64, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	return int64(len(mo.store.ordersByID)), nil
}

// Tx manager using write lock to emulate transaction boundary.
// Перед выполнением fn снимается копия всех таблиц; при ошибке состояние
// восстанавливается, так что неудачная транзакция не оставляет частичных
// изменений.
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snap := tx.store.snapshot()
	ctx = context.WithValue(ctx, txKey{}, true)
	if err := fn(ctx); err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	nextProdID  int64
	nextCustID  int64
	nextOrderID int64
	nextItemID  int64
	products    map[int64]domain.Product
	customers   map[int64]domain.Customer
	orders      map[int64]domain.SalesOrder
}

// snapshot/restore предполагают уже взятый write lock
func (m *MemoryStore) snapshot() memSnapshot {
	s := memSnapshot{
		nextProdID:  m.nextProdID,
		nextCustID:  m.nextCustID,
		nextOrderID: m.nextOrderID,
		nextItemID:  m.nextItemID,
		products:    make(map[int64]domain.Product, len(m.productsByID)),
		customers:   make(map[int64]domain.Customer, len(m.customersByID)),
		orders:      make(map[int64]domain.SalesOrder, len(m.ordersByID)),
	}
	for id, p := range m.productsByID {
		s.products[id] = p
	}
	for id, c := range m.customersByID {
		s.customers[id] = c
	}
	for id, o := range m.ordersByID {
		s.orders[id] = copyOrder(o)
	}
	return s
}

func (m *MemoryStore) restore(s memSnapshot) {
	m.nextProdID = s.nextProdID
	m.nextCustID = s.nextCustID
	m.nextOrderID = s.nextOrderID
	m.nextItemID = s.nextItemID
	m.productsByID = s.products
	m.customersByID = s.customers
	m.ordersByID = s.orders
}
