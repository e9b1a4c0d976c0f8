package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AviralYO/oops-ecommerce-sub000/handlers"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/cart"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/consul"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/notify"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/orders"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/products"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/stores/kafka"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/stores/postgres"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/users"
)

const serviceName = "marketplace"

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", slog.String("Error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	privatePEM, err := os.ReadFile(envOr("JWT_PRIVATE_KEY_FILE", "private.pem"))
	if err != nil {
		return fmt.Errorf("reading private key: %w", err)
	}
	publicPEM, err := os.ReadFile(envOr("JWT_PUBLIC_KEY_FILE", "pubkey.pem"))
	if err != nil {
		return fmt.Errorf("reading public key: %w", err)
	}
	keys, err := auth.NewKeys(privatePEM, publicPEM)
	if err != nil {
		return fmt.Errorf("loading keys: %w", err)
	}

	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, envOr("MIGRATIONS_DIR", "migrations")); err != nil {
		return err
	}

	uConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	cConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	productStore, err := products.NewPostgresStore(db)
	if err != nil {
		return err
	}
	pConf, err := products.NewConf(productStore)
	if err != nil {
		return err
	}
	orderStore, err := orders.NewPostgresStore(db)
	if err != nil {
		return err
	}
	oConf, err := orders.NewConf(orderStore)
	if err != nil {
		return err
	}

	consulClient, err := consul.NewClient()
	if err != nil {
		slog.Warn("consul unavailable, sms notifications disabled", slog.String("Error", err.Error()))
		consulClient = nil
	}
	port := consul.ServicePort()
	if consulClient != nil {
		if err := consul.RegisterService(consulClient, serviceName, envOr("SERVICE_ADDRESS", "localhost"), port); err != nil {
			slog.Warn("consul registration failed", slog.String("Error", err.Error()))
		}
	}

	kafkaConf, err := kafka.NewConf()
	if err != nil {
		slog.Warn("kafka unavailable, event fan-out disabled", slog.String("Error", err.Error()))
		kafkaConf = nil
	} else {
		defer kafkaConf.Close()
	}

	notifier := notify.NewConf(consulClient)
	resolver := auth.NewResolver(keys, uConf)

	h := handlers.NewHandler(oConf, pConf, &cConf, uConf, notifier, kafkaConf, consulClient, keys)
	router := handlers.API(os.Getenv("SERVICE_ENDPOINT_PREFIX"), resolver, h)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.Int("port", port))
		errCh <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
