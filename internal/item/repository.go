package item

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
)

var ErrNotFound = errors.New("item not found")

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Item, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Create(ctx context.Context, it *Item) error
	// DecrementStock атомарно списывает qty со склада, если остатка хватает.
	// Возвращает false без изменения строки, если остатка недостаточно
	// или товара нет. Проверка и списание - один UPDATE, без read-then-write.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	GetStock(ctx context.Context, id uuid.UUID) (int, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

const itemColumns = "id, name, description, price, image_url, stock, category, created_at, updated_at"

func scanItem(row pgx.Row, it *Item) error {
	return row.Scan(
		&it.ID,
		&it.Name,
		&it.Description,
		&it.Price,
		&it.ImageURL,
		&it.Stock,
		&it.Category,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	var (
		conds []string
		args  []any
	)

	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT count(*) FROM items %s", where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count items: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	listQuery := fmt.Sprintf(
		"SELECT %s FROM items %s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		itemColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := scanItem(rows, &it); err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating items: %w", err)
	}

	return items, total, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := fmt.Sprintf("SELECT %s FROM items WHERE id = $1", itemColumns)

	var it Item
	err := scanItem(r.db.QueryRow(ctx, query, id), &it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select item by id %s: %w", id, err)
	}

	return &it, nil
}

func (r *postgresRepository) Create(ctx context.Context, it *Item) error {
	if it.ID == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate item ID: %w", err)
		}
		it.ID = genID
	}

	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now

	query := `
		INSERT INTO items (id, name, description, price, image_url, stock, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		it.ID,
		it.Name,
		it.Description,
		it.Price,
		it.ImageURL,
		it.Stock,
		string(it.Category),
		it.CreatedAt,
		it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert item: %w", err)
	}

	return nil
}

func (r *postgresRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	// Условие stock >= qty входит в сам UPDATE: два конкурентных
	// чекаута не могут оба списать последние единицы товара.
	query := `
		UPDATE items
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`
	cmdTag, err := r.db.Exec(ctx, query, id, qty, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("repository: failed to decrement stock for item %s: %w", id, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *postgresRepository) GetStock(ctx context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := r.db.QueryRow(ctx, "SELECT stock FROM items WHERE id = $1", id).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("repository: failed to select stock for item %s: %w", id, err)
	}

	return stock, nil
}
