package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
)

type ItemHandler struct {
	service item.Service
}

func NewItemHandler(service item.Service) *ItemHandler {
	return &ItemHandler{service: service}
}

func (h *ItemHandler) RegisterRoutes(router chi.Router) {
	router.Get("/items", h.handleList)
	router.Get("/items/categories", h.handleCategories)
	router.Get("/items/{id}", h.handleGetByID)
}

func (h *ItemHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := item.ListFilter{
		Search:   r.URL.Query().Get("search"),
		Category: item.Category(r.URL.Query().Get("category")),
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list items")
		respondWithError(w, http.StatusInternalServerError, "Failed to list items")
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *ItemHandler) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]item.Category{"categories": item.Categories()})
}

func (h *ItemHandler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	it, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Item not found")
			return
		}
		log.Error().Err(err).Stringer("item_id", id).Msg("Failed to get item")
		respondWithError(w, http.StatusInternalServerError, "Failed to get item")
		return
	}

	respondWithJSON(w, http.StatusOK, it)
}
