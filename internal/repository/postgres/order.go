package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"grubdash/internal/config"
	"grubdash/internal/models"
	"grubdash/internal/repository"
)

//go:embed schema.sql
var schema string

type Repository struct {
	db     *pgxpool.Pool
	config *config.Config
}

func New(db *pgxpool.Pool, cfg *config.Config) *Repository {
	return &Repository{
		db:     db,
		config: cfg,
	}
}

// Migrate creates the orders table if it is missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return models.DatabaseError{Operation: "migrate", Err: err}
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]models.Order, error) {
	const op = "repository.postgres.List"

	var result []models.Order
	err := r.withRetry(ctx, false, func() error {
		rows, err := r.db.Query(ctx, `
			SELECT id, deliver_to, mobile_number, status, dishes
			FROM orders
			ORDER BY position
		`)
		if err != nil {
			return fmt.Errorf("%s: query orders: %w", op, err)
		}
		defer rows.Close()

		orders := make([]models.Order, 0)
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			orders = append(orders, o)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%s: iterate orders: %w", op, err)
		}

		result = orders
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (models.Order, error) {
	const op = "repository.postgres.GetByID"

	var result models.Order
	err := r.withRetry(ctx, false, func() error {
		row := r.db.QueryRow(ctx, `
			SELECT id, deliver_to, mobile_number, status, dishes
			FROM orders WHERE id = $1
		`, id)

		o, err := scanOrder(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrOrderNotFound
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		result = o
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return result, nil
}

// Create inserts the order. A retry after a commit whose acknowledgement was
// lost finds its own row and succeeds; ErrOrderExists is only returned when
// the id holds a different order.
func (r *Repository) Create(ctx context.Context, order models.Order) error {
	const op = "repository.postgres.Create"

	dishes, err := json.Marshal(order.Dishes)
	if err != nil {
		return fmt.Errorf("%s: marshal dishes: %w", op, err)
	}

	return r.withRetry(ctx, true, func() error {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO orders (id, deliver_to, mobile_number, status, dishes)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, order.ID, order.DeliverTo, order.MobileNumber, string(order.Status), dishes)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}

		var same bool
		err = r.db.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM orders
				WHERE id = $1 AND deliver_to = $2 AND mobile_number = $3
				  AND status = $4 AND dishes = $5::jsonb
			)
		`, order.ID, order.DeliverTo, order.MobileNumber, string(order.Status), dishes).Scan(&same)
		if err != nil {
			return fmt.Errorf("%s: compare existing order: %w", op, err)
		}
		if !same {
			return repository.ErrOrderExists
		}
		slog.Info("Order already stored by an earlier attempt", "order_id", order.ID)
		return nil
	})
}

func (r *Repository) Update(ctx context.Context, order models.Order) error {
	const op = "repository.postgres.Update"

	dishes, err := json.Marshal(order.Dishes)
	if err != nil {
		return fmt.Errorf("%s: marshal dishes: %w", op, err)
	}

	return r.withRetry(ctx, true, func() error {
		tag, err := r.db.Exec(ctx, `
			UPDATE orders
			SET deliver_to = $2, mobile_number = $3, status = $4, dishes = $5, updated_at = now()
			WHERE id = $1
		`, order.ID, order.DeliverTo, order.MobileNumber, string(order.Status), dishes)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrOrderNotFound
		}
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	const op = "repository.postgres.Delete"

	return r.withRetry(ctx, true, func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrOrderNotFound
		}
		return nil
	})
}

// withRetry runs operation under the configured backoff policy. Missing and
// duplicate orders are answers, not failures, so they are never retried.
func (r *Repository) withRetry(ctx context.Context, write bool, operation func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.config.Retry.InitialInterval
	if write {
		bo.MaxElapsedTime = r.config.Retry.MaxElapsedTimeDB
		bo.MaxInterval = r.config.Retry.MaxIntervalDB
	} else {
		bo.MaxElapsedTime = r.config.Retry.MaxElapsedTimeRead
		bo.MaxInterval = r.config.Retry.MaxIntervalRead
	}

	retryable := func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrOrderNotFound) || errors.Is(err, repository.ErrOrderExists) {
			return backoff.Permanent(err)
		}
		slog.Warn("Database operation failed, retrying...", "error", err)
		return err
	}

	start := time.Now()
	err := backoff.Retry(retryable, backoff.WithContext(bo, ctx))
	if err != nil && !errors.Is(err, repository.ErrOrderNotFound) && !errors.Is(err, repository.ErrOrderExists) {
		slog.Error("Database operation gave up", "error", err, "elapsed", time.Since(start).String())
		return models.DatabaseError{Operation: opName(write), Err: err}
	}
	return err
}

func opName(write bool) string {
	if write {
		return "write"
	}
	return "read"
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o      models.Order
		status string
		dishes []byte
	)
	if err := row.Scan(&o.ID, &o.DeliverTo, &o.MobileNumber, &status, &dishes); err != nil {
		return models.Order{}, err
	}
	o.Status = models.Status(status)

	if err := json.Unmarshal(dishes, &o.Dishes); err != nil {
		return models.Order{}, fmt.Errorf("decode dishes of order %s: %w", o.ID, err)
	}
	return o, nil
}

var _ repository.OrderRepository = (*Repository)(nil)
