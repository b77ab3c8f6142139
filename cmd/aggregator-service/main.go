package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/aggregate"
	"github.com/ecomstream/analytics-pipeline/internal/config"
	"github.com/ecomstream/analytics-pipeline/internal/event"
	"github.com/ecomstream/analytics-pipeline/internal/ingest"
	"github.com/ecomstream/analytics-pipeline/pkg/kafka"
	"github.com/ecomstream/analytics-pipeline/pkg/logger"
	"github.com/ecomstream/analytics-pipeline/pkg/postgres"
)

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

	log = logger.WithService(log, "aggregator-service")
	log.Info("Starting Aggregator Service",
		zap.String("environment", cfg.Environment),
		zap.Duration("batch_interval", cfg.Pipeline.BatchInterval),
		zap.Int("max_batch_size", cfg.Pipeline.MaxBatchSize),
	)

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	repo := aggregate.NewRepository(db, log)
	engine := aggregate.NewEngine(repo, log)
	queue := ingest.NewQueue()
	scheduler := ingest.NewScheduler(ingest.SchedulerConfig{
		Interval:     cfg.Pipeline.BatchInterval,
		MaxBatchSize: cfg.Pipeline.MaxBatchSize,
	}, queue, engine, log)

	// The consumer path only validates and enqueues: messages are
	// consumed as soon as they are buffered, independent of aggregation.
	handler := func(ctx context.Context, key, value []byte) error {
		ev, err := event.Decode(value)
		if err != nil {
			log.Warn("Rejected event",
				zap.Error(err),
				zap.String("key", string(key)),
			)
			return nil
		}

		queue.Enqueue(ev)
		return nil
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:           cfg.Kafka.Brokers,
		Topics:            []string{cfg.Kafka.Topic},
		GroupID:           cfg.Kafka.GroupID,
		AutoCommit:        true,
		CommitInterval:    cfg.Kafka.CommitInterval,
		SessionTimeout:    cfg.Kafka.SessionTimeout,
		RebalanceStrategy: cfg.Kafka.RebalanceStrategy,
	}, handler, log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(schedulerDone)
	}()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	<-consumer.WaitReady()
	log.Info("Kafka consumer is ready and consuming messages")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")
	cancel()

	// The scheduler flushes whatever is still buffered before returning;
	// the host's hard stop is the only cutoff.
	<-schedulerDone

	log.Info("Aggregator Service stopped")
}
