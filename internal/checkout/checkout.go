// Package checkout превращает изменяемую корзину в неизменяемый заказ,
// атомарно списывая остатки. Либо все строки корзины удовлетворены и
// заказ создан, либо ни один остаток не тронут.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
)

type Engine struct {
	runner TxRunner
}

func NewEngine(runner TxRunner) *Engine {
	return &Engine{runner: runner}
}

// Checkout оформляет заказ по текущей корзине пользователя.
//
// Возвращает созданный заказ (статус PENDING, сгенерированный tracking id,
// сумма по снимку цен) и пустую корзину - или одну из ошибок:
// ErrEmptyCart, *OutOfStockError с дефицитом по каждой строке, либо
// обёрнутую ошибку хранилища. В любом случае отказа ни остатки,
// ни корзина не меняются.
func (e *Engine) Checkout(ctx context.Context, userID uuid.UUID) (*order.Order, error) {
	var ord *order.Order

	err := e.runner.WithTx(ctx, func(s Stores) error {
		lines, err := s.Carts().ListLines(ctx, userID)
		if err != nil {
			return fmt.Errorf("checkout: failed to load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Условное списание по каждой строке. При отказе собираем дефицит
		// по всем неудовлетворимым строкам, а не только по первой:
		// клиенту нужен полный отчёт, чтобы поправить корзину за один раз.
		var shortages []Shortage
		for _, l := range lines {
			ok, err := s.Inventory().DecrementStock(ctx, l.ItemID, l.Quantity)
			if err != nil {
				return fmt.Errorf("checkout: failed to decrement stock: %w", err)
			}
			if ok {
				continue
			}

			available, err := s.Inventory().GetStock(ctx, l.ItemID)
			if err != nil {
				return fmt.Errorf("checkout: failed to read stock for report: %w", err)
			}
			shortages = append(shortages, Shortage{
				ItemID:    l.ItemID,
				Requested: l.Quantity,
				Available: available,
			})
		}
		if len(shortages) > 0 {
			// Успешные списания других строк откатятся вместе с транзакцией.
			return &OutOfStockError{Shortages: shortages}
		}

		total := decimal.Zero
		orderItems := make([]order.OrderItem, 0, len(lines))
		for _, l := range lines {
			total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
			orderItems = append(orderItems, order.OrderItem{
				ItemID:          l.ItemID,
				Quantity:        l.Quantity,
				PriceAtPurchase: l.UnitPrice,
			})
		}

		ord = &order.Order{
			UserID:     userID,
			Status:     order.StatusPending,
			TotalPrice: total,
			OrderItems: orderItems,
		}
		if err := s.Orders().Create(ctx, ord); err != nil {
			return fmt.Errorf("checkout: failed to create order: %w", err)
		}

		if err := s.Carts().Clear(ctx, userID); err != nil {
			return fmt.Errorf("checkout: failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		var oos *OutOfStockError
		switch {
		case errors.Is(err, ErrEmptyCart):
			log.Warn().Stringer("user_id", userID).Msg("checkout: attempt to checkout an empty cart")
		case errors.As(err, &oos):
			log.Info().Stringer("user_id", userID).Int("shortages", len(oos.Shortages)).Msg("checkout: rejected due to insufficient stock")
		default:
			log.Error().Err(err).Stringer("user_id", userID).Msg("checkout: transaction failed")
		}
		return nil, err
	}

	log.Info().
		Stringer("user_id", userID).
		Stringer("order_id", ord.ID).
		Str("tracking_id", ord.TrackingID).
		Str("total_price", ord.TotalPrice.String()).
		Msg("checkout: order created")

	return ord, nil
}
