package kafka

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"grubdash/internal/config"
	"grubdash/internal/models"
	"grubdash/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// intakeNamespace seeds the name-based UUIDs that become order ids.
var intakeNamespace = uuid.MustParse("7d1c4b2e-5f0a-4c3e-9b8d-2a6f1e0c9d34")

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads order intake messages shaped like the POST /orders body and
// creates an order for each one that passes the same field rules.
//
// Offsets are committed in order, so a message that cannot be stored is
// retried in place until it succeeds or the consumer stops. Moving on would
// let a later commit skip it.
type Consumer struct {
	service service.OrderService
	reader  messageReader
	cfg     *config.Config
}

func NewConsumer(srv service.OrderService, cfg *config.Config) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{
		service: srv,
		reader:  r,
		cfg:     cfg,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	slog.Info("Starting Kafka consumer...", "topic", c.cfg.Kafka.Topic, "group_id", c.cfg.Kafka.GroupID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer context cancelled, stopping...")
			return
		default:
		}

		m, err := c.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("failed to read message after retries", "error", err)
			}
			continue
		}

		if err := c.process(ctx, m); err != nil {
			slog.Info("Consumer stopped before the message was stored, it will be redelivered",
				"partition", m.Partition,
				"offset", m.Offset,
			)
			return
		}

		commitCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Kafka.CommitTimeout)
		if err := c.reader.CommitMessages(commitCtx, m); err != nil {
			slog.Error("failed to commit message", "error", models.KafkaError{Operation: "commit", Err: err})
		}
		cancel()
	}
}

func (c *Consumer) fetch(ctx context.Context) (kafka.Message, error) {
	var m kafka.Message

	operation := func() error {
		var err error
		m, err = c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			slog.Warn("failed to read message from kafka, retrying...", "error", err)
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 5 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return kafka.Message{}, models.KafkaError{Operation: "fetch", Err: err}
	}
	return m, nil
}

// process retries handleMessage with no deadline. It only gives up, with the
// context's error, when the consumer is stopping.
func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	operation := func() error {
		err := c.handleMessage(ctx, m)
		if err != nil && ctx.Err() == nil {
			slog.Warn("failed to store order from message, retrying...",
				"error", err,
				"partition", m.Partition,
				"offset", m.Offset,
			)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	bo.InitialInterval = c.cfg.Retry.InitialInterval
	bo.MaxInterval = c.cfg.Retry.MaxIntervalDB

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// handleMessage returns nil for messages that should be committed, including
// ones rejected as invalid. A non-nil error means the order could not be
// stored yet.
func (c *Consumer) handleMessage(ctx context.Context, m kafka.Message) error {
	var req models.OrderRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		slog.Error("failed to unmarshal order", "error", err, "message_value", string(m.Value))
		return nil
	}

	dishes, err := req.Data.ValidateFields()
	if err != nil {
		var apiErr *models.APIError
		if errors.As(err, &apiErr) {
			slog.Warn("rejected invalid order", "reason", apiErr.Message, "offset", m.Offset)
			return nil
		}
		return err
	}

	created, err := c.service.Create(ctx, models.Order{
		ID:           messageOrderID(m),
		DeliverTo:    req.Data.DeliverTo,
		MobileNumber: req.Data.MobileNumber,
		Status:       req.Data.Status,
		Dishes:       dishes,
	})
	if err != nil {
		return err
	}

	slog.Info("Successfully processed order", "order_id", created.ID)
	return nil
}

// messageOrderID names the order after the message's position in the log, so
// a redelivered message maps to the order it already created.
func messageOrderID(m kafka.Message) string {
	id := uuid.NewSHA1(intakeNamespace, []byte(fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)))
	return hex.EncodeToString(id[:])
}

func (c *Consumer) Close() {
	slog.Info("Closing Kafka consumer...")

	if err := c.reader.Close(); err != nil {
		slog.Error("failed to close kafka reader", "error", models.KafkaError{Operation: "close", Err: err})
	}

	slog.Info("Kafka consumer closed.")
}
