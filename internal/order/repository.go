package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusChanged - статус заказа успели поменять параллельно,
	// проверенный переход больше не применим.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

type Repository interface {
	// Create вставляет заказ вместе с позициями. Собственной транзакции
	// не открывает: чекаут выполняет вставку внутри своей.
	Create(ctx context.Context, ord *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Order, int, error)
	// UpdateStatus переводит заказ из fromStatus в newStatus одним условным
	// UPDATE, чтобы два параллельных перехода не перетёрли друг друга.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, fromStatus, newStatus OrderStatus) error
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

func (r *postgresRepository) Create(ctx context.Context, ord *Order) error {
	if ord.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		ord.ID = genID
	}
	if ord.TrackingID == "" {
		ord.TrackingID = NewTrackingID()
	}

	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (id, tracking_id, user_id, status, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, queryOrder,
		ord.ID,
		ord.TrackingID,
		ord.UserID,
		string(ord.Status),
		ord.TotalPrice,
		ord.CreatedAt,
		ord.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, item_id, quantity, price_at_purchase, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range ord.OrderItems {
		oi := &ord.OrderItems[i]

		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		oi.ID = itemID
		oi.OrderID = ord.ID
		oi.CreatedAt = now
		oi.UpdatedAt = now

		_, err = r.db.Exec(ctx, queryItem,
			oi.ID,
			oi.OrderID,
			oi.ItemID,
			oi.Quantity,
			oi.PriceAtPurchase,
			oi.CreatedAt,
			oi.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", ord.ID, err)
		}
	}

	return nil
}

const orderColumns = "id, tracking_id, user_id, status, total_price, created_at, updated_at"

func (r *postgresRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	queryOrder := fmt.Sprintf("SELECT %s FROM orders WHERE id = $1", orderColumns)

	var ord Order
	err := r.db.QueryRow(ctx, queryOrder, orderID).Scan(
		&ord.ID,
		&ord.TrackingID,
		&ord.UserID,
		&ord.Status,
		&ord.TotalPrice,
		&ord.CreatedAt,
		&ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	items, err := r.listItems(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	ord.OrderItems = items[orderID]
	if ord.OrderItems == nil {
		ord.OrderItems = make([]OrderItem, 0)
	}

	return &ord, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Order, int, error) {
	where := "WHERE user_id = $1"
	args := []any{userID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	countQuery := fmt.Sprintf("SELECT count(*) FROM orders %s", where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders for user %s: %w", userID, err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	listQuery := fmt.Sprintf(
		"SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)-1, len(args),
	)

	orderRows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var ord Order
		err := orderRows.Scan(
			&ord.ID,
			&ord.TrackingID,
			&ord.UserID,
			&ord.Status,
			&ord.TotalPrice,
			&ord.CreatedAt,
			&ord.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan order for user %s: %w", userID, err)
		}
		ord.OrderItems = make([]OrderItem, 0)
		ordersMap[ord.ID] = &ord
		orderIDs = append(orderIDs, ord.ID)
	}
	if err := orderRows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating orders for user %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, total, nil
	}

	itemsByOrder, err := r.listItems(ctx, orderIDs)
	if err != nil {
		return nil, 0, err
	}
	for orderID, items := range itemsByOrder {
		ordersMap[orderID].OrderItems = items
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}

	return result, total, nil
}

func (r *postgresRepository) listItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	query := `
		SELECT id, order_id, item_id, quantity, price_at_purchase, created_at, updated_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]OrderItem)
	for rows.Next() {
		var oi OrderItem
		err := rows.Scan(
			&oi.ID,
			&oi.OrderID,
			&oi.ItemID,
			&oi.Quantity,
			&oi.PriceAtPurchase,
			&oi.CreatedAt,
			&oi.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		result[oi.OrderID] = append(result[oi.OrderID], oi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return result, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, fromStatus, newStatus OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, string(newStatus), time.Now().UTC(), orderID, string(fromStatus))
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Либо заказа нет, либо его статус уже не fromStatus.
		var current string
		err := r.db.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1", orderID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("repository: failed to re-check order status %s: %w", orderID, err)
		}
		return fmt.Errorf("%w: %s is %s, not %s", ErrStatusChanged, orderID, current, fromStatus)
	}

	return nil
}
