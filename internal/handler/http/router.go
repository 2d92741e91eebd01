package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/grocery-shop/internal/auth"
	"github.com/vasiliy-maslov/grocery-shop/internal/cart"
	"github.com/vasiliy-maslov/grocery-shop/internal/checkout"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
	"github.com/vasiliy-maslov/grocery-shop/pkg/metrics"
)

type RouterDeps struct {
	Auth     auth.Service
	Items    item.Service
	Carts    cart.Service
	Orders   order.Service
	Checkout *checkout.Engine
	Metrics  *metrics.ServerMetrics
}

func NewRouter(deps RouterDeps) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		router.Use(Metrics(deps.Metrics))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	NewAuthHandler(deps.Auth).RegisterRoutes(router)
	NewItemHandler(deps.Items).RegisterRoutes(router)

	// Корзина, чекаут и заказы доступны только с access-токеном.
	router.Group(func(protected chi.Router) {
		protected.Use(RequireAuth(deps.Auth))

		NewCartHandler(deps.Carts).RegisterRoutes(protected)
		NewCheckoutHandler(deps.Checkout, deps.Items, deps.Metrics).RegisterRoutes(protected)
		NewOrderHandler(deps.Orders).RegisterRoutes(protected)
	})

	return router
}
