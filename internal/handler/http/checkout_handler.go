package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/grocery-shop/internal/checkout"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
	"github.com/vasiliy-maslov/grocery-shop/pkg/metrics"
)

type CheckoutResponse struct {
	Success    bool      `json:"success"`
	OrderID    uuid.UUID `json:"order_id"`
	TrackingID string    `json:"tracking_id"`
}

type OutOfStockResponse struct {
	Error   string              `json:"error"`
	Details []checkout.Shortage `json:"details"`
}

type CheckoutHandler struct {
	engine  *checkout.Engine
	items   item.Service
	metrics *metrics.ServerMetrics
}

func NewCheckoutHandler(engine *checkout.Engine, items item.Service, m *metrics.ServerMetrics) *CheckoutHandler {
	return &CheckoutHandler{engine: engine, items: items, metrics: m}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/checkout", h.handleCheckout)
}

// handleCheckout - тело запроса пустое: корзина лежит на сервере
// и является единственным источником количеств.
func (h *CheckoutHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ord, err := h.engine.Checkout(r.Context(), userID)
	if err != nil {
		var oos *checkout.OutOfStockError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			h.countResult("empty_cart")
			respondWithError(w, http.StatusBadRequest, "Cart is empty")
		case errors.As(err, &oos):
			h.countResult("out_of_stock")
			respondWithJSON(w, http.StatusConflict, OutOfStockResponse{
				Error:   "OUT_OF_STOCK",
				Details: oos.Shortages,
			})
		default:
			h.countResult("error")
			log.Error().Err(err).Stringer("user_id", userID).Msg("Checkout failed")
			respondWithError(w, http.StatusInternalServerError, "Checkout failed")
		}
		return
	}

	h.countResult("success")

	// Остатки купленных товаров изменились - сбрасываем их кэш.
	itemIDs := make([]uuid.UUID, 0, len(ord.OrderItems))
	for _, oi := range ord.OrderItems {
		itemIDs = append(itemIDs, oi.ItemID)
	}
	h.items.Invalidate(r.Context(), itemIDs)

	respondWithJSON(w, http.StatusOK, CheckoutResponse{
		Success:    true,
		OrderID:    ord.ID,
		TrackingID: ord.TrackingID,
	})
}

func (h *CheckoutHandler) countResult(result string) {
	if h.metrics != nil {
		h.metrics.Checkouts.WithLabelValues(result).Inc()
	}
}
