package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/item"
)

var (
	ErrItemNotFound    = errors.New("item not found in catalog")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Add(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error)
	// UpdateQuantity меняет количество в строке. Ноль удаляет строку
	// и возвращает nil вместо строки с нулевым количеством.
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Merge(ctx context.Context, userID uuid.UUID, items []MergeItem) (*Cart, error)
}

type service struct {
	repo  Repository
	items item.Repository
}

func NewService(repo Repository, items item.Repository) Service {
	return &service{repo: repo, items: items}
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	lines, err := s.repo.ListViews(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch cart in repository")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	return &Cart{Lines: lines, Subtotal: subtotal}, nil
}

func (s *service) Add(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to check item before cart add")
		return nil, fmt.Errorf("service: failed to check item: %w", err)
	}

	line, err := s.repo.Upsert(ctx, userID, itemID, qty)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("item_id", itemID).Msg("service: failed to add cart line in repository")
		return nil, fmt.Errorf("service: failed to add cart line: %w", err)
	}

	return line, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, qty int) (*Line, error) {
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}

	if qty == 0 {
		if err := s.Remove(ctx, userID, itemID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	line, err := s.repo.SetQuantity(ctx, userID, itemID, qty)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return nil, ErrLineNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Stringer("item_id", itemID).Msg("service: failed to update cart line in repository")
		return nil, fmt.Errorf("service: failed to update cart line: %w", err)
	}

	return line, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return ErrLineNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Stringer("item_id", itemID).Msg("service: failed to remove cart line in repository")
		return fmt.Errorf("service: failed to remove cart line: %w", err)
	}

	return nil
}

// Merge добавляет позиции клиентской корзины к серверной после логина.
// Невалидные и неизвестные позиции молча пропускаются.
func (s *service) Merge(ctx context.Context, userID uuid.UUID, items []MergeItem) (*Cart, error) {
	for _, mi := range items {
		if mi.ItemID == uuid.Nil || mi.Quantity <= 0 {
			continue
		}

		if _, err := s.items.GetByID(ctx, mi.ItemID); err != nil {
			if errors.Is(err, item.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("service: failed to check item during merge: %w", err)
		}

		if _, err := s.repo.Upsert(ctx, userID, mi.ItemID, mi.Quantity); err != nil {
			log.Error().Err(err).Stringer("user_id", userID).Stringer("item_id", mi.ItemID).Msg("service: failed to merge cart line")
			return nil, fmt.Errorf("service: failed to merge cart line: %w", err)
		}
	}

	return s.Get(ctx, userID)
}
