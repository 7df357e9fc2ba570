package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sync"

	"grubdash/internal/models"
	"grubdash/internal/repository"
)

// Repository keeps orders in a slice in insertion order. Values are copied on
// the way in and out so callers never share dish storage with the store.
type Repository struct {
	mu     sync.RWMutex
	orders []models.Order
}

func New(seed ...models.Order) *Repository {
	r := &Repository{orders: make([]models.Order, 0, len(seed))}
	for _, o := range seed {
		r.orders = append(r.orders, o.Clone())
	}
	return r
}

// LoadSeed reads a JSON array of orders, e.g. a fixture exported from another
// environment.
func LoadSeed(path string) ([]models.Order, error) {
	const op = "repository.memory.LoadSeed"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (r *Repository) List(_ context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		result = append(result, o.Clone())
	}
	return result, nil
}

func (r *Repository) GetByID(_ context.Context, id string) (models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Order{}, repository.ErrOrderNotFound
	}
	return r.orders[i].Clone(), nil
}

func (r *Repository) Create(_ context.Context, order models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(order.ID); i >= 0 {
		if reflect.DeepEqual(r.orders[i], order) {
			return nil
		}
		return repository.ErrOrderExists
	}
	r.orders = append(r.orders, order.Clone())
	return nil
}

func (r *Repository) Update(_ context.Context, order models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(order.ID)
	if i < 0 {
		return repository.ErrOrderNotFound
	}
	r.orders[i] = order.Clone()
	return nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return repository.ErrOrderNotFound
	}
	r.orders = append(r.orders[:i], r.orders[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (r *Repository) indexOf(id string) int {
	for i := range r.orders {
		if r.orders[i].ID == id {
			return i
		}
	}
	return -1
}

var _ repository.OrderRepository = (*Repository)(nil)
