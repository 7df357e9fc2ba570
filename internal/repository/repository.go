package repository

import (
	"context"
	"errors"

	"grubdash/internal/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already exists")
)

// OrderRepository owns the order collection. List preserves insertion order.
//
// Create is idempotent: storing an order whose id is taken by an identical
// order succeeds, so a retried insert that already landed is not an error.
// ErrOrderExists means the id belongs to a different order.
type OrderRepository interface {
	List(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (models.Order, error)
	Create(ctx context.Context, order models.Order) error
	Update(ctx context.Context, order models.Order) error
	Delete(ctx context.Context, id string) error
}
