package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "august/internal/http"
	"august/internal/repository"
	"august/internal/repository/sqlite"
	"august/internal/service"

	_ "august/docs"
)

// @title August Order Management API
// @version 1.0
// @description Products, customers and sales orders with stock-checked confirmation.
// @BasePath /api/v1

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	var (
		products  repository.ProductRepository
		customers repository.CustomerRepository
		orders    repository.OrderRepository
		tx        repository.TxManager
	)
	if dsn := os.Getenv("STORE_DSN"); dsn != "" {
		st, err := sqlite.Open(dsn)
		if err != nil {
			slog.Error("open store", "dsn", dsn, "err", err)
			os.Exit(1)
		}
		defer st.Close()
		products = sqlite.NewProducts(st)
		customers = sqlite.NewCustomers(st)
		orders = sqlite.NewOrders(st)
		tx = st
		slog.Info("using sqlite store", "dsn", dsn)
	} else {
		store := repository.NewMemoryStore()
		products = store
		customers = repository.NewMemoryCustomers(store)
		orders = repository.NewMemoryOrders(store)
		tx = repository.NewMemoryTx(store)
		slog.Info("using in-memory store")
	}

	productsSvc := service.NewProductService(products)
	customersSvc := service.NewCustomerService(customers)
	ordersSvc := service.NewOrderService(products, customers, orders, tx)

	srv := httpapi.NewServer(productsSvc, customersSvc, ordersSvc)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":9091"
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}
