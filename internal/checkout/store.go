package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
)

// CartLine - строка корзины со снимком цены, сделанным до списания
// остатков. Именно эта цена попадает в price_at_purchase заказа.
type CartLine struct {
	ItemID    uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Shortage - одна строка отчёта о нехватке товара.
type Shortage struct {
	ItemID    uuid.UUID `json:"item_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"` // 0, если товар удалён из каталога
}

var ErrEmptyCart = errors.New("cart is empty")

// OutOfStockError возвращается из транзакционного замыкания вместо
// паники или исключения: ненулевая ошибка - сигнал раннеру откатить
// транзакцию. Содержит дефицит по каждой неудовлетворимой строке.
type OutOfStockError struct {
	Shortages []Shortage
}

func (e *OutOfStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("item %s: requested %d, available %d", s.ItemID, s.Requested, s.Available))
	}
	return "out of stock: " + strings.Join(parts, "; ")
}

type InventoryStore interface {
	// DecrementStock - атомарное условное списание: true, только если
	// остатка хватило и он уменьшен тем же действием.
	DecrementStock(ctx context.Context, itemID uuid.UUID, qty int) (bool, error)
	// GetStock возвращает текущий остаток; для удалённого товара - 0.
	GetStock(ctx context.Context, itemID uuid.UUID) (int, error)
}

type CartStore interface {
	// ListLines читает корзину пользователя под блокировкой до конца
	// транзакции - конкурентный чекаут того же пользователя ждёт здесь.
	ListLines(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type OrderStore interface {
	Create(ctx context.Context, ord *order.Order) error
}

// Stores - хранилища, привязанные к одной транзакции.
type Stores interface {
	Inventory() InventoryStore
	Carts() CartStore
	Orders() OrderStore
}

// TxRunner выполняет fn в одной атомарной транзакции: ненулевая ошибка
// из fn откатывает все изменения, nil - коммитит.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(s Stores) error) error
}
