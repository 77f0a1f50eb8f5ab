package service

import (
	"context"
	"errors"
	"testing"

	"august/internal/domain"
	"august/internal/repository"
)

func TestCustomerCRUD(t *testing.T) {
	ctx := context.Background()
	_, cs, _ := setup(t)

	c, err := cs.Create(ctx, domain.Customer{Name: "Jane", Phone: "+100", Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 {
		t.Fatalf("no id")
	}

	c.Phone = "+200"
	if _, err := cs.Update(ctx, *c); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := cs.GetByID(ctx, c.ID)
	if err != nil || got.Phone != "+200" {
		t.Fatalf("get after update: %v %v", got, err)
	}

	if err := cs.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cs.GetByID(ctx, c.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCustomerCreate_Validation(t *testing.T) {
	ctx := context.Background()
	_, cs, _ := setup(t)
	if _, err := cs.Create(ctx, domain.Customer{Name: ""}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCustomerDelete_WithOrders(t *testing.T) {
	ctx := context.Background()
	ps, cs, os := setup(t)
	cust := seedCustomer(t, cs)

	p, _ := ps.Create(ctx, domain.Product{SKU: "S1", Name: "A", Price: mustPrice(t, "1.00"), Stock: 5})
	if _, err := os.CreateOrder(ctx, cust.ID, []domain.OrderItem{{ProductID: p.ID, Quantity: 1}}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := cs.Delete(ctx, cust.ID); !errors.Is(err, repository.ErrCustomerHasOrders) {
		t.Fatalf("expected customer has orders, got %v", err)
	}
}

func TestCustomerList_SortedByName(t *testing.T) {
	ctx := context.Background()
	_, cs, _ := setup(t)
	for _, name := range []string{"Zoe", "Adam", "Mia"} {
		if _, err := cs.Create(ctx, domain.Customer{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := cs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Name != "Adam" || list[2].Name != "Zoe" {
		t.Fatalf("unexpected order: %v", list)
	}
}
