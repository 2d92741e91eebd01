package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/grocery-shop/internal/cart"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
)

// PostgresStore - TxRunner поверх pgx. Изоляции READ COMMITTED достаточно:
// условный UPDATE остатка берёт блокировку строки товара, а конкурирующая
// транзакция после её снятия перепроверяет условие stock >= qty заново.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) WithTx(ctx context.Context, fn func(s Stores) error) (err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(r)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(&txStores{tx: tx})
	return err
}

// txStores отдаёт репозитории, привязанные к одной транзакции:
// pgx.Tx удовлетворяет db.Querier точно так же, как pgxpool.Pool.
type txStores struct {
	tx pgx.Tx
}

func (s *txStores) Inventory() InventoryStore {
	return &txInventory{repo: item.NewRepository(s.tx)}
}

func (s *txStores) Carts() CartStore {
	return &txCarts{repo: cart.NewRepository(s.tx)}
}

func (s *txStores) Orders() OrderStore {
	return order.NewRepository(s.tx)
}

type txInventory struct {
	repo item.Repository
}

func (i *txInventory) DecrementStock(ctx context.Context, itemID uuid.UUID, qty int) (bool, error) {
	return i.repo.DecrementStock(ctx, itemID, qty)
}

func (i *txInventory) GetStock(ctx context.Context, itemID uuid.UUID) (int, error) {
	stock, err := i.repo.GetStock(ctx, itemID)
	if errors.Is(err, item.ErrNotFound) {
		// Товар удалён из каталога - для отчёта о дефиците это нулевой остаток.
		return 0, nil
	}
	return stock, err
}

type txCarts struct {
	repo cart.Repository
}

func (c *txCarts) ListLines(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	checkoutLines, err := c.repo.ListForCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := make([]CartLine, 0, len(checkoutLines))
	for _, cl := range checkoutLines {
		lines = append(lines, CartLine{
			ItemID:    cl.ItemID,
			Quantity:  cl.Quantity,
			UnitPrice: cl.UnitPrice,
		})
	}
	return lines, nil
}

func (c *txCarts) Clear(ctx context.Context, userID uuid.UUID) error {
	return c.repo.Clear(ctx, userID)
}
