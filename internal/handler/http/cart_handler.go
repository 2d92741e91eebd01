package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/grocery-shop/internal/cart"
)

type AddCartItemRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type MergeCartRequest struct {
	Items []cart.MergeItem `json:"items"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGet)
	router.Post("/cart/items", h.handleAdd)
	router.Put("/cart/items/{itemID}", h.handleUpdate)
	router.Delete("/cart/items/{itemID}", h.handleRemove)
	router.Post("/cart/merge", h.handleMerge)
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	c, err := h.service.Get(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to get cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to get cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	line, err := h.service.Add(r.Context(), userID, req.ItemID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			respondWithError(w, http.StatusNotFound, "Item not found")
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondWithError(w, http.StatusBadRequest, "Quantity must be positive")
		default:
			log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to add cart line")
			respondWithError(w, http.StatusInternalServerError, "Failed to add item to cart")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	itemID, err := uuid.FromString(chi.URLParam(r, "itemID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	var req UpdateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	line, err := h.service.UpdateQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrLineNotFound):
			respondWithError(w, http.StatusNotFound, "Cart item not found")
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondWithError(w, http.StatusBadRequest, "Quantity must be non-negative")
		default:
			log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to update cart line")
			respondWithError(w, http.StatusInternalServerError, "Failed to update cart item")
		}
		return
	}

	// Нулевое количество удаляет строку.
	if line == nil {
		respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	respondWithJSON(w, http.StatusOK, line)
}

func (h *CartHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	itemID, err := uuid.FromString(chi.URLParam(r, "itemID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	if err := h.service.Remove(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			respondWithError(w, http.StatusNotFound, "Cart item not found")
			return
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to remove cart line")
		respondWithError(w, http.StatusInternalServerError, "Failed to remove cart item")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *CartHandler) handleMerge(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req MergeCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	c, err := h.service.Merge(r.Context(), userID, req.Items)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to merge cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to merge cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}
