package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/grocery-shop/internal/auth"
	"github.com/vasiliy-maslov/grocery-shop/internal/cache"
	"github.com/vasiliy-maslov/grocery-shop/internal/cart"
	"github.com/vasiliy-maslov/grocery-shop/internal/checkout"
	"github.com/vasiliy-maslov/grocery-shop/internal/config"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
	handlerHttp "github.com/vasiliy-maslov/grocery-shop/internal/handler/http"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
	"github.com/vasiliy-maslov/grocery-shop/pkg/metrics"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "grocery-shop").Logger()

	log.Info().Msg("Grocery shop starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	var itemCache item.Cache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		itemCache = cache.NewRedisItemCache(redisClient)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		log.Info().Msg("REDIS_ADDR is empty, item cache disabled")
	}

	itemRepo := item.NewRepository(dbConn.Pool)
	cartRepo := cart.NewRepository(dbConn.Pool)
	orderRepo := order.NewRepository(dbConn.Pool)
	authRepo := auth.NewRepository(dbConn.Pool)

	itemSvc := item.NewService(itemRepo, itemCache)
	cartSvc := cart.NewService(cartRepo, itemRepo)
	orderSvc := order.NewService(orderRepo)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	authSvc := auth.NewService(authRepo, tokenManager, cfg.Auth.RefreshTTL)
	engine := checkout.NewEngine(checkout.NewPostgresStore(dbConn.Pool))

	serverMetrics := metrics.NewServerMetrics("api")

	router := handlerHttp.NewRouter(handlerHttp.RouterDeps{
		Auth:     authSvc,
		Items:    itemSvc,
		Carts:    cartSvc,
		Orders:   orderSvc,
		Checkout: engine,
		Metrics:  serverMetrics,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}

	log.Info().Msg("Grocery shop stopped gracefully")
}
