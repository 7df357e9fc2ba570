package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grubdash/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

var (
	addresses = []string{
		"1600 Pennsylvania Avenue NW, Washington, DC 20500",
		"308 Negra Arroyo Lane, Albuquerque, NM",
		"742 Evergreen Terrace, Springfield",
	}

	menu = []map[string]any{
		{"id": "d351db2b49b69679504652ea1cf38241", "name": "Dolcelatte and chickpea spaghetti", "price": 19},
		{"id": "3c637d011d844ebab1205fef8a7e36ea", "name": "Broccoli and beetroot stir fry", "price": 15},
		{"id": "90c3d873684bf381dfab29034b5bba73", "name": "Falafel and tahini bagel", "price": 6},
	}

	// Each one fails a different intake rule.
	invalidMessages = []string{
		`{"data":{"mobileNumber":"(202) 456-1111","dishes":[{"quantity":1}]}}`,
		`{"data":{"deliverTo":"742 Evergreen Terrace","dishes":[{"quantity":1}]}}`,
		`{"data":{"deliverTo":"742 Evergreen Terrace","mobileNumber":"(202) 456-1111","dishes":[]}}`,
		`{"data":{"deliverTo":"742 Evergreen Terrace","mobileNumber":"(202) 456-1111","dishes":[{"quantity":"2"}]}}`,
		`{"data":`,
	}
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := config.MustLoad()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("Producer started. Sending messages...", "topic", cfg.Kafka.Topic, "delay", cfg.Producer.Delay)

	ticker := time.NewTicker(cfg.Producer.Delay)
	defer ticker.Stop()

	messageCount := 0

	for {
		select {
		case <-ctx.Done():
			slog.Info("Producer stopped", "sent", messageCount)
			return
		case <-ticker.C:
		}

		messageCount++

		msgType := "VALID"
		value := generateValidOrder()
		if messageCount%3 == 0 {
			msgType = "INVALID"
			value = []byte(invalidMessages[rand.Intn(len(invalidMessages))])
		}

		msg := kafka.Message{
			Key:   []byte(uuid.NewString()),
			Value: value,
		}

		sendOperation := func() error {
			sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
			defer sendCancel()
			return writer.WriteMessages(sendCtx, msg)
		}

		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 15 * time.Second
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxInterval = 3 * time.Second

		if err := backoff.Retry(sendOperation, backoff.WithContext(bo, ctx)); err != nil {
			slog.Error("Failed to send message after retries", "type", msgType, "error", err)
		} else {
			slog.Info("Sent message", "type", msgType, "key", string(msg.Key))
		}
	}
}

// generateValidOrder builds a create request body with one to three random
// dishes from the menu.
func generateValidOrder() []byte {
	dishes := make([]map[string]any, 0, len(menu))
	for _, i := range rand.Perm(len(menu))[:1+rand.Intn(len(menu))] {
		dish := make(map[string]any, len(menu[i])+1)
		for k, v := range menu[i] {
			dish[k] = v
		}
		dish["quantity"] = 1 + rand.Intn(4)
		dishes = append(dishes, dish)
	}

	body := map[string]any{
		"data": map[string]any{
			"deliverTo":    addresses[rand.Intn(len(addresses))],
			"mobileNumber": "(202) 456-1111",
			"dishes":       dishes,
		},
	}

	result, _ := json.Marshal(body)
	return result
}
