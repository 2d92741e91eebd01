package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
)

var ErrLineNotFound = errors.New("cart line not found")

type Repository interface {
	ListViews(ctx context.Context, userID uuid.UUID) ([]LineView, error)
	GetLine(ctx context.Context, userID, itemID uuid.UUID) (*Line, error)
	// Upsert добавляет строку или увеличивает количество существующей.
	Upsert(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error)
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	// ListForCheckout читает строки корзины вместе с ценой товара и держит
	// блокировку строк корзины до конца транзакции. Повторный чекаут того же
	// пользователя встанет на этой блокировке и после коммита первого увидит
	// уже пустую корзину.
	ListForCheckout(ctx context.Context, userID uuid.UUID) ([]CheckoutLine, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) ListViews(ctx context.Context, userID uuid.UUID) ([]LineView, error) {
	query := `
		SELECT ci.id, ci.item_id, i.name, i.price, ci.quantity, i.stock
		FROM cart_items ci
		JOIN items i ON i.id = ci.item_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]LineView, 0)
	for rows.Next() {
		var lv LineView
		err := rows.Scan(&lv.ID, &lv.ItemID, &lv.Name, &lv.Price, &lv.Quantity, &lv.AvailableStock)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line for user %s: %w", userID, err)
		}
		lines = append(lines, lv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart lines for user %s: %w", userID, err)
	}

	return lines, nil
}

func (r *postgresRepository) GetLine(ctx context.Context, userID, itemID uuid.UUID) (*Line, error) {
	query := `
		SELECT id, user_id, item_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1 AND item_id = $2
	`
	var l Line
	err := r.db.QueryRow(ctx, query, userID, itemID).Scan(
		&l.ID, &l.UserID, &l.ItemID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart line: %w", err)
	}

	return &l, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart line ID: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO cart_items (id, user_id, item_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, item_id, quantity, created_at, updated_at
	`

	var l Line
	err = r.db.QueryRow(ctx, query, id, userID, itemID, qty, now).Scan(
		&l.ID, &l.UserID, &l.ItemID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to upsert cart line: %w", err)
	}

	return &l, nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error) {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = $4
		WHERE user_id = $1 AND item_id = $2
		RETURNING id, user_id, item_id, quantity, created_at, updated_at
	`

	var l Line
	err := r.db.QueryRow(ctx, query, userID, itemID, qty, time.Now().UTC()).Scan(
		&l.ID, &l.UserID, &l.ItemID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("repository: failed to update cart line quantity: %w", err)
	}

	return &l, nil
}

func (r *postgresRepository) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND item_id = $2", userID, itemID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart line: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}

	return nil
}

func (r *postgresRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", userID, err)
	}

	return nil
}

func (r *postgresRepository) ListForCheckout(ctx context.Context, userID uuid.UUID) ([]CheckoutLine, error) {
	// LEFT JOIN: строка на удалённый товар остаётся в выборке,
	// чекаут отчитается по ней как о дефиците с нулевым остатком.
	// ORDER BY item_id задаёт всем чекаутам единый порядок блокировки
	// строк items, иначе пересекающиеся корзины могут взять их навстречу
	// друг другу и попасть в deadlock.
	query := `
		SELECT ci.item_id, ci.quantity, COALESCE(i.price, 0)
		FROM cart_items ci
		LEFT JOIN items i ON i.id = ci.item_id
		WHERE ci.user_id = $1
		ORDER BY ci.item_id ASC
		FOR UPDATE OF ci
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to lock cart lines for user %s: %w", userID, err)
	}
	defer rows.Close()

	lines := make([]CheckoutLine, 0)
	for rows.Next() {
		var cl CheckoutLine
		if err := rows.Scan(&cl.ItemID, &cl.Quantity, &cl.UnitPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan checkout line for user %s: %w", userID, err)
		}
		lines = append(lines, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating checkout lines for user %s: %w", userID, err)
	}

	return lines, nil
}
