package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"grubdash/internal/idgen"
	"grubdash/internal/models"
	"grubdash/internal/repository"
)

// maxIDAttempts bounds how many fresh ids Create tries when the store reports
// a collision.
const maxIDAttempts = 3

type OrderService interface {
	List(ctx context.Context, orderID string) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (models.Order, error)
	Create(ctx context.Context, order models.Order) (models.Order, error)
	Update(ctx context.Context, order models.Order) (models.Order, error)
	Delete(ctx context.Context, id string) error
}

// orderService reads straight from the repository. Guards decide on what
// GetByID returns, so it must reflect the store and never a stale copy.
type orderService struct {
	repo repository.OrderRepository
	ids  idgen.Generator
}

func NewOrderService(repo repository.OrderRepository, ids idgen.Generator) OrderService {
	return &orderService{
		repo: repo,
		ids:  ids,
	}
}

// List returns every order, or only those whose id equals orderID when it is
// set.
func (s *orderService) List(ctx context.Context, orderID string) ([]models.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		return orders, nil
	}

	filtered := make([]models.Order, 0, 1)
	for _, o := range orders {
		if o.ID == orderID {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (s *orderService) GetByID(ctx context.Context, id string) (models.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return models.Order{}, models.OrderNotFoundError{OrderID: id}
		}
		return models.Order{}, err
	}
	return order, nil
}

// Create defaults the status to pending and stores the order. Without an id it
// assigns a fresh one, retrying on collisions. A caller-supplied id is stored
// as is, so repeating the same create is harmless.
func (s *orderService) Create(ctx context.Context, order models.Order) (models.Order, error) {
	if order.Status == "" {
		order.Status = models.StatusPending
	}

	if order.ID != "" {
		if err := s.repo.Create(ctx, order); err != nil {
			return models.Order{}, fmt.Errorf("create order %s: %w", order.ID, err)
		}
		slog.Info("Order created", "order_id", order.ID)
		return order, nil
	}

	for attempt := 1; ; attempt++ {
		order.ID = s.ids.NewID()

		err := s.repo.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrOrderExists) || attempt == maxIDAttempts {
			return models.Order{}, fmt.Errorf("create order: %w", err)
		}
		slog.Warn("Generated order id already taken, retrying", "order_id", order.ID, "attempt", attempt)
	}

	slog.Info("Order created", "order_id", order.ID)
	return order, nil
}

// Update replaces every field of the stored order except its id.
func (s *orderService) Update(ctx context.Context, order models.Order) (models.Order, error) {
	if err := s.repo.Update(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return models.Order{}, models.OrderNotFoundError{OrderID: order.ID}
		}
		return models.Order{}, err
	}

	slog.Info("Order updated", "order_id", order.ID, "status", order.Status)
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return models.OrderNotFoundError{OrderID: id}
		}
		return err
	}

	slog.Info("Order deleted", "order_id", id)
	return nil
}
