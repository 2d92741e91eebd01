package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Line - строка корзины. Пара (user_id, item_id) уникальна,
// количество всегда положительное: обновление до нуля удаляет строку.
type Line struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ItemID    uuid.UUID `json:"item_id" db:"item_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LineView - строка корзины вместе с данными товара для выдачи клиенту.
type LineView struct {
	ID             uuid.UUID       `json:"id"`
	ItemID         uuid.UUID       `json:"item_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	AvailableStock int             `json:"available_stock"`
}

type Cart struct {
	Lines    []LineView      `json:"cart"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CheckoutLine - снимок строки корзины для чекаута: количество и цена
// на момент чтения. Для удалённого из каталога товара цена нулевая,
// чекаут такой строкой всё равно не воспользуется - спишет её в дефицит.
type CheckoutLine struct {
	ItemID    uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// MergeItem - позиция клиентской корзины при слиянии после логина.
type MergeItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}
