package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

var (
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

type Service interface {
	GetByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) (*Page, error)
	UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, newStatus OrderStatus) (*Order, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// GetByID возвращает заказ, только если он принадлежит userID.
// Чужой заказ неотличим от несуществующего.
func (s *service) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	ord, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order in repository")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if ord.UserID != userID {
		return nil, ErrOrderNotFound
	}

	return ord, nil
}

const (
	defaultLimit = 10
	maxLimit     = 50
)

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	orders, total, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	pages := total / filter.Limit
	if total%filter.Limit > 0 {
		pages++
	}

	return &Page{
		Orders: orders,
		Pagination: Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, newStatus OrderStatus) (*Order, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	currentOrder, err := s.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	// Повторная установка того же статуса - не ошибка.
	if currentOrder.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return currentOrder, nil
	}

	if !allowedTransitions[currentOrder.Status][newStatus] {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", currentOrder.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, currentOrder.Status, newStatus)
	}

	if err := s.repo.UpdateStatus(ctx, orderID, currentOrder.Status, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		if errors.Is(err, ErrStatusChanged) {
			// Параллельное обновление обогнало нас, переход надо проверять заново.
			return nil, fmt.Errorf("%w: order %s was updated concurrently", ErrInvalidStatusTransition, orderID)
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", currentOrder.Status).Stringer("new_status", newStatus).Msg("service: order status updated")

	currentOrder.Status = newStatus
	return currentOrder, nil
}
