package order

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

func (os OrderStatus) String() string {
	return string(os)
}

func (os OrderStatus) Valid() bool {
	switch os {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	ItemID          uuid.UUID       `json:"item_id" db:"item_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" db:"price_at_purchase"` // снимок цены на момент чекаута, не пересчитывается
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	TrackingID string          `json:"tracking_id" db:"tracking_id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	Status     OrderStatus     `json:"status" db:"status"`
	OrderItems []OrderItem     `json:"order_items" db:"-"` // собирается JOIN'ом по order_items
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// NewTrackingID генерирует человекочитаемый номер заказа.
// Суффикс спасает от коллизий в пределах одной миллисекунды,
// окончательную уникальность гарантирует ограничение в базе.
func NewTrackingID() string {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("ORD-%d-%04X", time.Now().UnixMilli(), binary.BigEndian.Uint16(b[:]))
}

// ListFilter - параметры выборки истории заказов.
type ListFilter struct {
	Status OrderStatus
	Page   int
	Limit  int
}

type Page struct {
	Orders []Order `json:"orders"`
	Pagination
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
