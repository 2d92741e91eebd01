package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Cache - кэш карточек товара. Реализация живёт в internal/cache,
// промах обозначается ErrCacheMiss.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*Item, error)
	Set(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}

var ErrCacheMiss = errors.New("cache miss")

type Service interface {
	List(ctx context.Context, filter ListFilter) (*Page, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Invalidate(ctx context.Context, ids []uuid.UUID)
}

type service struct {
	repo  Repository
	cache Cache // nil, если кэш выключен
}

func NewService(repo Repository, cache Cache) Service {
	return &service{repo: repo, cache: cache}
}

const (
	defaultLimit = 20
	maxLimit     = 50
)

func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("service: unknown category %q", filter.Category)
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list items in repository")
		return nil, fmt.Errorf("service: failed to list items: %w", err)
	}

	pages := total / filter.Limit
	if total%filter.Limit > 0 {
		pages++
	}

	return &Page{
		Items: items,
		Pagination: Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			// Кэш недоступен - идём в базу, это не повод отдавать 500.
			log.Warn().Err(err).Stringer("item_id", id).Msg("service: item cache lookup failed")
		}
	}

	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("item_id", id).Msg("service: failed to fetch item in repository")
		return nil, fmt.Errorf("service: failed to fetch item: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, it); err != nil {
			log.Warn().Err(err).Stringer("item_id", id).Msg("service: failed to cache item")
		}
	}

	return it, nil
}

// Invalidate сбрасывает кэш по списку товаров. Вызывается после чекаута,
// когда остатки уже изменились. Ошибки только логируются: кэш с коротким
// TTL догонит базу сам.
func (s *service) Invalidate(ctx context.Context, ids []uuid.UUID) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Stringer("item_id", id).Msg("service: failed to invalidate item cache")
		}
	}
}
