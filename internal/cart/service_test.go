package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/grocery-shop/internal/cart"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
)

type mockCartRepository struct {
	listViewsFunc   func(ctx context.Context, userID uuid.UUID) ([]cart.LineView, error)
	getLineFunc     func(ctx context.Context, userID, itemID uuid.UUID) (*cart.Line, error)
	upsertFunc      func(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cart.Line, error)
	setQuantityFunc func(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cart.Line, error)
	deleteFunc      func(ctx context.Context, userID, itemID uuid.UUID) error
	clearFunc       func(ctx context.Context, userID uuid.UUID) error
	listCheckout    func(ctx context.Context, userID uuid.UUID) ([]cart.CheckoutLine, error)
}

func (m *mockCartRepository) ListViews(ctx context.Context, userID uuid.UUID) ([]cart.LineView, error) {
	return m.listViewsFunc(ctx, userID)
}

func (m *mockCartRepository) GetLine(ctx context.Context, userID, itemID uuid.UUID) (*cart.Line, error) {
	return m.getLineFunc(ctx, userID, itemID)
}

func (m *mockCartRepository) Upsert(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cart.Line, error) {
	return m.upsertFunc(ctx, userID, itemID, qty)
}

func (m *mockCartRepository) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cart.Line, error) {
	return m.setQuantityFunc(ctx, userID, itemID, qty)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	return m.deleteFunc(ctx, userID, itemID)
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	return m.clearFunc(ctx, userID)
}

func (m *mockCartRepository) ListForCheckout(ctx context.Context, userID uuid.UUID) ([]cart.CheckoutLine, error) {
	return m.listCheckout(ctx, userID)
}

type mockItemRepository struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*item.Item, error)
}

func (m *mockItemRepository) List(ctx context.Context, filter item.ListFilter) ([]item.Item, int, error) {
	panic("not used")
}

func (m *mockItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockItemRepository) Create(ctx context.Context, it *item.Item) error {
	panic("not used")
}

func (m *mockItemRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	panic("not used")
}

func (m *mockItemRepository) GetStock(ctx context.Context, id uuid.UUID) (int, error) {
	panic("not used")
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func knownItems(ids ...uuid.UUID) *mockItemRepository {
	return &mockItemRepository{
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*item.Item, error) {
			for _, known := range ids {
				if id == known {
					return &item.Item{ID: id, Name: "Banana"}, nil
				}
			}
			return nil, item.ErrNotFound
		},
	}
}

func TestCartService_Get_Subtotal(t *testing.T) {
	userID := mustUUID(t)

	repo := &mockCartRepository{
		listViewsFunc: func(ctx context.Context, uid uuid.UUID) ([]cart.LineView, error) {
			return []cart.LineView{
				{Name: "Banana", Price: decimal.RequireFromString("60.00"), Quantity: 2},
				{Name: "Milk", Price: decimal.RequireFromString("45.00"), Quantity: 3},
			}, nil
		},
	}
	svc := cart.NewService(repo, knownItems())

	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("255.00")), "subtotal = %s", got.Subtotal)
}

func TestCartService_Add(t *testing.T) {
	userID := mustUUID(t)
	itemID := mustUUID(t)

	var upserted int
	repo := &mockCartRepository{
		upsertFunc: func(ctx context.Context, uid, iid uuid.UUID, qty int) (*cart.Line, error) {
			upserted = qty
			return &cart.Line{UserID: uid, ItemID: iid, Quantity: qty}, nil
		},
	}
	svc := cart.NewService(repo, knownItems(itemID))

	line, err := svc.Add(context.Background(), userID, itemID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 2, upserted)
}

func TestCartService_Add_UnknownItem(t *testing.T) {
	svc := cart.NewService(&mockCartRepository{}, knownItems())

	_, err := svc.Add(context.Background(), mustUUID(t), mustUUID(t), 1)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestCartService_Add_InvalidQuantity(t *testing.T) {
	svc := cart.NewService(&mockCartRepository{}, knownItems())

	for _, qty := range []int{0, -1} {
		_, err := svc.Add(context.Background(), mustUUID(t), mustUUID(t), qty)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	}
}

func TestCartService_UpdateQuantity_ZeroRemovesLine(t *testing.T) {
	userID := mustUUID(t)
	itemID := mustUUID(t)

	var deleted bool
	repo := &mockCartRepository{
		deleteFunc: func(ctx context.Context, uid, iid uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc := cart.NewService(repo, knownItems(itemID))

	line, err := svc.UpdateQuantity(context.Background(), userID, itemID, 0)
	require.NoError(t, err)
	assert.Nil(t, line)
	assert.True(t, deleted)
}

func TestCartService_UpdateQuantity_MissingLine(t *testing.T) {
	repo := &mockCartRepository{
		setQuantityFunc: func(ctx context.Context, uid, iid uuid.UUID, qty int) (*cart.Line, error) {
			return nil, cart.ErrLineNotFound
		},
	}
	svc := cart.NewService(repo, knownItems())

	_, err := svc.UpdateQuantity(context.Background(), mustUUID(t), mustUUID(t), 3)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestCartService_Merge_SkipsInvalidItems(t *testing.T) {
	userID := mustUUID(t)
	known := mustUUID(t)
	unknown := mustUUID(t)

	var upserts []uuid.UUID
	repo := &mockCartRepository{
		upsertFunc: func(ctx context.Context, uid, iid uuid.UUID, qty int) (*cart.Line, error) {
			upserts = append(upserts, iid)
			return &cart.Line{UserID: uid, ItemID: iid, Quantity: qty}, nil
		},
		listViewsFunc: func(ctx context.Context, uid uuid.UUID) ([]cart.LineView, error) {
			return []cart.LineView{{ItemID: known, Quantity: 2}}, nil
		},
	}
	svc := cart.NewService(repo, knownItems(known))

	got, err := svc.Merge(context.Background(), userID, []cart.MergeItem{
		{ItemID: known, Quantity: 2},
		{ItemID: unknown, Quantity: 1},
		{ItemID: uuid.Nil, Quantity: 5},
		{ItemID: known, Quantity: 0},
	})
	require.NoError(t, err)

	// Слилась только валидная строка с известным товаром.
	assert.Equal(t, []uuid.UUID{known}, upserts)
	assert.Len(t, got.Lines, 1)
}

func TestCartService_Remove_PropagatesRepositoryError(t *testing.T) {
	repoErr := errors.New("connection reset")
	repo := &mockCartRepository{
		deleteFunc: func(ctx context.Context, uid, iid uuid.UUID) error {
			return repoErr
		},
	}
	svc := cart.NewService(repo, knownItems())

	err := svc.Remove(context.Background(), mustUUID(t), mustUUID(t))
	assert.ErrorIs(t, err, repoErr)
}
