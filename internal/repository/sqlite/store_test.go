package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"august/internal/domain"
	"august/internal/repository"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func price(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestProducts_CRUD(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	products := NewProducts(store)

	p := domain.Product{SKU: "S1", Name: "Aspirin", Price: price(t, "10.00"), Stock: 5}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	dup := domain.Product{SKU: "S1", Name: "Other", Price: price(t, "1.00")}
	if err := products.Create(ctx, &dup); !errors.Is(err, repository.ErrSKUExists) {
		t.Fatalf("expected sku exists, got %v", err)
	}

	got, err := products.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(price(t, "10.00")) {
		t.Fatalf("price round-trip: %v", got.Price)
	}

	p.Price = price(t, "12.50")
	p.Stock = 7
	if err := products.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = products.GetByID(ctx, p.ID)
	if !got.Price.Equal(price(t, "12.50")) || got.Stock != 7 {
		t.Fatalf("update round-trip: %v %v", got.Price, got.Stock)
	}

	if err := products.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := products.GetByID(ctx, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProducts_ListFiltering(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	products := NewProducts(store)

	add := func(sku, name, pr string) {
		t.Helper()
		p := domain.Product{SKU: sku, Name: name, Price: price(t, pr), Stock: 1}
		if err := products.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
	add("S1", "Aspirin", "100.00")
	add("S2", "Paracetamol", "50.00")
	add("S3", "Ibuprofen", "150.00")

	list, err := products.List(ctx, repository.ProductFilter{NameSubstring: "asp"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Aspirin" {
		t.Fatalf("name filter: %v", list)
	}

	min := price(t, "100.00")
	list, _ = products.List(ctx, repository.ProductFilter{MinPrice: &min})
	if len(list) != 2 {
		t.Fatalf("min filter expected 2, got %d", len(list))
	}
}

func TestCustomers_DeleteWithOrders(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	customers := NewCustomers(store)
	orders := NewOrders(store)

	c := domain.Customer{Name: "Jane", Email: "jane@example.com"}
	if err := customers.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	o := domain.SalesOrder{Number: "SO-TEST", CustomerID: c.ID, Status: domain.OrderStatusDraft}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}

	if err := customers.Delete(ctx, c.ID); !errors.Is(err, repository.ErrCustomerHasOrders) {
		t.Fatalf("expected customer has orders, got %v", err)
	}
}

func TestOrders_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	products := NewProducts(store)
	customers := NewCustomers(store)
	orders := NewOrders(store)

	c := domain.Customer{Name: "Jane"}
	if err := customers.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	p := domain.Product{SKU: "S1", Name: "Aspirin", Price: price(t, "5.00"), Stock: 10}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	o := domain.SalesOrder{
		Number:     "SO-ABCD1234",
		CustomerID: c.ID,
		Status:     domain.OrderStatusDraft,
		Items:      []domain.OrderItem{{ProductID: p.ID, Quantity: 10, UnitPrice: p.Price}},
	}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Items[0].ID == 0 {
		t.Fatalf("item id not assigned")
	}

	got, err := orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Number != "SO-ABCD1234" || got.Status != domain.OrderStatusDraft {
		t.Fatalf("round-trip: %+v", got)
	}
	if len(got.Items) != 1 || !got.Items[0].UnitPrice.Equal(price(t, "5.00")) {
		t.Fatalf("items round-trip: %+v", got.Items)
	}
	if !got.TotalAmount().Equal(price(t, "50.00")) {
		t.Fatalf("total: %v", got.TotalAmount())
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at not persisted")
	}

	if err := products.Delete(ctx, p.ID); !errors.Is(err, repository.ErrProductInUse) {
		t.Fatalf("expected product in use, got %v", err)
	}
}

func TestOrders_UpdateItems(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	products := NewProducts(store)
	customers := NewCustomers(store)
	orders := NewOrders(store)

	c := domain.Customer{Name: "Jane"}
	if err := customers.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	p1 := domain.Product{SKU: "S1", Name: "Aspirin", Price: price(t, "3.00"), Stock: 10}
	p2 := domain.Product{SKU: "S2", Name: "Ibuprofen", Price: price(t, "4.00"), Stock: 10}
	for _, p := range []*domain.Product{&p1, &p2} {
		if err := products.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	o := domain.SalesOrder{
		Number:     "SO-TEST",
		CustomerID: c.ID,
		Status:     domain.OrderStatusDraft,
		Items:      []domain.OrderItem{{ProductID: p1.ID, Quantity: 2, UnitPrice: p1.Price}},
	}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}

	// keep the existing line with its id, add a fresh one
	items := []domain.OrderItem{
		{ID: o.Items[0].ID, ProductID: p1.ID, Quantity: 5, UnitPrice: p1.Price},
		{ProductID: p2.ID, Quantity: 1, UnitPrice: p2.Price},
	}
	if err := orders.UpdateItems(ctx, o.ID, items); err != nil {
		t.Fatalf("update items: %v", err)
	}

	got, _ := orders.GetByID(ctx, o.ID)
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].ID != o.Items[0].ID || got.Items[0].Quantity != 5 {
		t.Fatalf("existing item not preserved: %+v", got.Items[0])
	}
	if got.Items[1].ID == 0 {
		t.Fatalf("new item id not assigned")
	}

	if err := orders.UpdateItems(ctx, 999, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrders_ConfirmIfDraft(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	customers := NewCustomers(store)
	orders := NewOrders(store)

	c := domain.Customer{Name: "Jane"}
	if err := customers.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	o := domain.SalesOrder{Number: "SO-TEST", CustomerID: c.ID, Status: domain.OrderStatusDraft}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}

	ok, err := orders.ConfirmIfDraft(ctx, o.ID)
	if err != nil || !ok {
		t.Fatalf("first cas: ok=%v err=%v", ok, err)
	}
	ok, err = orders.ConfirmIfDraft(ctx, o.ID)
	if err != nil || ok {
		t.Fatalf("second cas must be a no-op: ok=%v err=%v", ok, err)
	}
	got, _ := orders.GetByID(ctx, o.ID)
	if got.Status != domain.OrderStatusConfirmed {
		t.Fatalf("status: %v", got.Status)
	}
	if _, err := orders.ConfirmIfDraft(ctx, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	products := NewProducts(store)

	p := domain.Product{SKU: "S1", Name: "Aspirin", Price: price(t, "1.00"), Stock: 5}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(ctx context.Context) error {
		pp, err := products.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		pp.Stock -= 3
		if err := products.Update(ctx, pp); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	pp, _ := products.GetByID(ctx, p.ID)
	if pp.Stock != 5 {
		t.Fatalf("stock expected 5 after rollback, got %v", pp.Stock)
	}
}

func TestStore_TransactionCommit(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	products := NewProducts(store)

	p := domain.Product{SKU: "S1", Name: "Aspirin", Price: price(t, "1.00"), Stock: 5}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	err := store.WithTransaction(ctx, func(ctx context.Context) error {
		pp, err := products.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		pp.Stock -= 3
		return products.Update(ctx, pp)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	pp, _ := products.GetByID(ctx, p.ID)
	if pp.Stock != 2 {
		t.Fatalf("stock expected 2, got %v", pp.Stock)
	}
}
