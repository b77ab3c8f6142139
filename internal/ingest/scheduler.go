package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/aggregate"
	"github.com/ecomstream/analytics-pipeline/internal/event"
)

const (
	DefaultBatchInterval = 3 * time.Second
	DefaultMaxBatchSize  = 100
)

// Aggregator consumes one drained batch, one event at a time.
type Aggregator interface {
	ProcessBatch(ctx context.Context, batch []*event.AnalyticsEvent) aggregate.BatchOutcome
}

type SchedulerConfig struct {
	Interval     time.Duration
	MaxBatchSize int
}

// Scheduler drains the queue into bounded batches on a fixed interval.
// Leaving anything beyond MaxBatchSize in the queue bounds worst-case
// per-tick latency at the cost of queueing delay under sustained load.
type Scheduler struct {
	queue    *Queue
	engine   Aggregator
	interval time.Duration
	maxBatch int
	logger   *zap.Logger
}

func NewScheduler(cfg SchedulerConfig, q *Queue, engine Aggregator, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBatchInterval
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	return &Scheduler{
		queue:    q,
		engine:   engine,
		interval: cfg.Interval,
		maxBatch: cfg.MaxBatchSize,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled. Batches never overlap: the loop is a
// single goroutine, so a tick that fires while a batch is still in flight
// is coalesced by the ticker rather than run concurrently.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Batch scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("max_batch_size", s.maxBatch),
	)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.drainRemaining()
			s.logger.Info("Batch scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	batch := s.queue.Drain(s.maxBatch)
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	outcome := s.engine.ProcessBatch(ctx, batch)

	s.logger.Debug("Batch processed",
		zap.Int("events", outcome.Events),
		zap.Int("applied_updates", outcome.Applied),
		zap.Int("failed_updates", outcome.Failed),
		zap.Int("queue_depth", s.queue.Len()),
		zap.Duration("duration", time.Since(start)),
	)
}

// drainRemaining flushes whatever is still queued at shutdown. Enqueued
// events were already acknowledged upstream, so dropping them here would
// lose them for good; the host's hard stop is the only cutoff.
func (s *Scheduler) drainRemaining() {
	ctx := context.Background()
	for s.queue.Len() > 0 {
		s.tick(ctx)
	}
}
