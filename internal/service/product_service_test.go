package service

import (
	"context"
	"errors"
	"testing"

	"august/internal/domain"
	"august/internal/repository"
)

func TestProductCRUD(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setup(t)

	p, err := ps.Create(ctx, domain.Product{SKU: "S1", Name: "Aspirin", Price: mustPrice(t, "10.00"), Stock: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := ps.GetByID(ctx, p.ID)
	if err != nil || got.SKU != "S1" {
		t.Fatalf("get: %v", err)
	}

	p.Price = mustPrice(t, "12.50")
	if _, err := ps.Update(ctx, *p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = ps.GetByID(ctx, p.ID)
	if !got.Price.Equal(mustPrice(t, "12.50")) {
		t.Fatalf("price not updated: %v", got.Price)
	}

	if err := ps.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ps.GetByID(ctx, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProductCreate_Validation(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setup(t)

	if _, err := ps.Create(ctx, domain.Product{SKU: "", Name: "A", Price: mustPrice(t, "1.00")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty sku, got %v", err)
	}
	if _, err := ps.Create(ctx, domain.Product{SKU: "S1", Name: "A", Price: mustPrice(t, "-1.00")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative price, got %v", err)
	}
	if _, err := ps.Create(ctx, domain.Product{SKU: "S1", Name: "A", Price: mustPrice(t, "1.00"), Stock: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative stock, got %v", err)
	}
}

func TestProductCreate_DuplicateSKU(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setup(t)

	if _, err := ps.Create(ctx, domain.Product{SKU: "S1", Name: "A", Price: mustPrice(t, "1.00")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ps.Create(ctx, domain.Product{SKU: "S1", Name: "B", Price: mustPrice(t, "2.00")}); !errors.Is(err, repository.ErrSKUExists) {
		t.Fatalf("expected sku exists, got %v", err)
	}
}

func TestProductDelete_InUse(t *testing.T) {
	ctx := context.Background()
	ps, cs, os := setup(t)
	cust := seedCustomer(t, cs)

	p, _ := ps.Create(ctx, domain.Product{SKU: "S1", Name: "A", Price: mustPrice(t, "1.00"), Stock: 5})
	if _, err := os.CreateOrder(ctx, cust.ID, []domain.OrderItem{{ProductID: p.ID, Quantity: 1}}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := ps.Delete(ctx, p.ID); !errors.Is(err, repository.ErrProductInUse) {
		t.Fatalf("expected product in use, got %v", err)
	}
}

func TestProductList_Filtering(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setup(t)
	add := func(sku, name, price string) {
		t.Helper()
		if _, err := ps.Create(ctx, domain.Product{SKU: sku, Name: name, Price: mustPrice(t, price), Stock: 1}); err != nil {
			t.Fatal(err)
		}
	}
	add("S1", "Aspirin", "100.00")
	add("S2", "Paracetamol", "50.00")
	add("S3", "Ibuprofen", "150.00")

	// name contains
	list, _ := ps.List(ctx, repository.ProductFilter{NameSubstring: "in"})
	if len(list) != 1 || list[0].Name != "Aspirin" {
		t.Fatalf("name filter: %v", list)
	}

	// min
	min := mustPrice(t, "100.00")
	list, _ = ps.List(ctx, repository.ProductFilter{MinPrice: &min})
	for _, p := range list {
		if p.Price.LessThan(min) {
			t.Fatalf("min filter fail")
		}
	}
	if len(list) != 2 {
		t.Fatalf("min filter expected 2, got %d", len(list))
	}

	// max
	max := mustPrice(t, "100.00")
	list, _ = ps.List(ctx, repository.ProductFilter{MaxPrice: &max})
	for _, p := range list {
		if p.Price.GreaterThan(max) {
			t.Fatalf("max filter fail")
		}
	}
	if len(list) != 2 {
		t.Fatalf("max filter expected 2, got %d", len(list))
	}
}
