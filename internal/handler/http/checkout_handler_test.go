package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/grocery-shop/internal/checkout"
	handlerHttp "github.com/vasiliy-maslov/grocery-shop/internal/handler/http"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
)

// stubStores - минимальное хранилище для движка чекаута: все методы
// работают поверх полей структуры, транзакция сводится к вызову замыкания.
type stubStores struct {
	lines    []checkout.CartLine
	stock    map[uuid.UUID]int
	listErr  error
	createds []order.Order
}

func (s *stubStores) WithTx(_ context.Context, fn func(st checkout.Stores) error) error {
	return fn(s)
}

func (s *stubStores) Inventory() checkout.InventoryStore { return s }
func (s *stubStores) Carts() checkout.CartStore          { return s }
func (s *stubStores) Orders() checkout.OrderStore        { return s }

func (s *stubStores) DecrementStock(_ context.Context, itemID uuid.UUID, qty int) (bool, error) {
	if s.stock[itemID] < qty {
		return false, nil
	}
	s.stock[itemID] -= qty
	return true, nil
}

func (s *stubStores) GetStock(_ context.Context, itemID uuid.UUID) (int, error) {
	return s.stock[itemID], nil
}

func (s *stubStores) ListLines(_ context.Context, userID uuid.UUID) ([]checkout.CartLine, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.lines, nil
}

func (s *stubStores) Clear(_ context.Context, userID uuid.UUID) error {
	s.lines = nil
	return nil
}

func (s *stubStores) Create(_ context.Context, ord *order.Order) error {
	ord.ID = uuid.Must(uuid.NewV4())
	ord.TrackingID = order.NewTrackingID()
	s.createds = append(s.createds, *ord)
	return nil
}

func checkoutRouter(userID uuid.UUID, stores *stubStores, items *mockItemService) *chi.Mux {
	engine := checkout.NewEngine(stores)
	return protectedRouter(userID, func(router chi.Router) {
		handlerHttp.NewCheckoutHandler(engine, items, nil).RegisterRoutes(router)
	})
}

func TestCheckoutHandler_Success(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	banana := uuid.Must(uuid.NewV4())

	stores := &stubStores{
		lines: []checkout.CartLine{{ItemID: banana, Quantity: 2, UnitPrice: decimal.RequireFromString("60.00")}},
		stock: map[uuid.UUID]int{banana: 50},
	}
	items := &mockItemService{}
	router := checkoutRouter(userID, stores, items)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(t, http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp handlerHttp.CheckoutResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.NotEqual(t, uuid.Nil, resp.OrderID)
	assert.NotEmpty(t, resp.TrackingID)

	// Кэш купленных товаров сброшен.
	require.Len(t, items.invalidated, 1)
	assert.Equal(t, []uuid.UUID{banana}, items.invalidated[0])
	assert.Equal(t, 48, stores.stock[banana])
}

func TestCheckoutHandler_EmptyCart(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	items := &mockItemService{}
	router := checkoutRouter(userID, &stubStores{}, items)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(t, http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Cart is empty", resp["error"])
	assert.Empty(t, items.invalidated)
}

func TestCheckoutHandler_OutOfStock(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	chicken := uuid.Must(uuid.NewV4())

	stores := &stubStores{
		lines: []checkout.CartLine{{ItemID: chicken, Quantity: 3, UnitPrice: decimal.RequireFromString("220.00")}},
		stock: map[uuid.UUID]int{chicken: 1},
	}
	items := &mockItemService{}
	router := checkoutRouter(userID, stores, items)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(t, http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp handlerHttp.OutOfStockResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "OUT_OF_STOCK", resp.Error)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, chicken, resp.Details[0].ItemID)
	assert.Equal(t, 3, resp.Details[0].Requested)
	assert.Equal(t, 1, resp.Details[0].Available)
	assert.Empty(t, items.invalidated)
}

func TestCheckoutHandler_StorageFailure(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	stores := &stubStores{listErr: errors.New("connection refused")}
	router := checkoutRouter(userID, stores, &mockItemService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(t, http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCheckoutHandler_RequiresAuth(t *testing.T) {
	router := checkoutRouter(uuid.Must(uuid.NewV4()), &stubStores{}, &mockItemService{})

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("Authorization", "Bearer forged-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
