// Dev tool: publishes a stream of sample interaction events to the topic
// so the pipeline can be exercised end to end.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/config"
	"github.com/ecomstream/analytics-pipeline/internal/event"
	"github.com/ecomstream/analytics-pipeline/pkg/kafka"
	"github.com/ecomstream/analytics-pipeline/pkg/logger"
)

var (
	users    = []string{"u-1001", "u-1002", "u-1003", "u-1004", "u-1005"}
	products = []string{"p-501", "p-502", "p-503"}
	shops    = []string{"s-77", "s-78"}

	countries = []string{"DE", "NL", "FR", ""}
	devices   = []string{"ios", "android", "web", ""}

	actions = []event.Action{
		event.ActionProductView,
		event.ActionProductView,
		event.ActionProductView,
		event.ActionAddToCart,
		event.ActionRemoveFromCart,
		event.ActionAddToWishlist,
		event.ActionRemoveFromWishlist,
		event.ActionShopVisit,
		event.ActionPurchase,
	}
)

type wireEvent struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId,omitempty"`
	ShopID    string `json:"shopId,omitempty"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Country   string `json:"country,omitempty"`
	Device    string `json:"device,omitempty"`
}

func main() {

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "event-seeder")

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Kafka.Topic,
		Retries:          cfg.Kafka.ProducerRetries,
		Timeout:          cfg.Kafka.ProducerTimeout,
		RequiredAcks:     cfg.Kafka.RequiredAcks,
		Compression:      cfg.Kafka.CompressionType,
		IdempotentWrites: cfg.Kafka.IdempotentWrites,
		MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
	}, log)
	if err != nil {
		log.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	ctx := context.Background()
	total := 200

	for i := 0; i < total; i++ {
		ev := randomEvent()

		if err := producer.SendMessage(ctx, ev.UserID, ev); err != nil {
			log.Error("Failed to publish event", zap.Error(err))
			continue
		}

		time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
	}

	log.Info("Seeding finished", zap.Int("events", total))
}

func randomEvent() wireEvent {
	action := actions[rand.Intn(len(actions))]

	ev := wireEvent{
		UserID:    users[rand.Intn(len(users))],
		Action:    string(action),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Country:   countries[rand.Intn(len(countries))],
		Device:    devices[rand.Intn(len(devices))],
	}

	switch action {
	case event.ActionShopVisit:
		ev.ShopID = shops[rand.Intn(len(shops))]
	default:
		ev.ProductID = products[rand.Intn(len(products))]
		ev.ShopID = shops[rand.Intn(len(shops))]
	}

	return ev
}
