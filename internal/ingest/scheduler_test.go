package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/aggregate"
	"github.com/ecomstream/analytics-pipeline/internal/event"
)

type captureAggregator struct {
	mu      sync.Mutex
	batches [][]*event.AnalyticsEvent
}

func (c *captureAggregator) ProcessBatch(ctx context.Context, batch []*event.AnalyticsEvent) aggregate.BatchOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return aggregate.BatchOutcome{Events: len(batch), Applied: len(batch)}
}

func (c *captureAggregator) snapshot() [][]*event.AnalyticsEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]*event.AnalyticsEvent(nil), c.batches...)
}

func TestScheduler_SplitsOversizedBacklog(t *testing.T) {
	q := NewQueue()
	for _, ev := range makeEvents(150) {
		q.Enqueue(ev)
	}

	agg := &captureAggregator{}
	s := NewScheduler(SchedulerConfig{
		Interval:     10 * time.Millisecond,
		MaxBatchSize: 100,
	}, q, agg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if len(agg.snapshot()) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("scheduler produced %d batches, want 2", len(agg.snapshot()))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	batches := agg.snapshot()
	if len(batches[0]) != 100 {
		t.Fatalf("len(batches[0]) = %d, want 100", len(batches[0]))
	}
	if len(batches[1]) != 50 {
		t.Fatalf("len(batches[1]) = %d, want 50", len(batches[1]))
	}
	if batches[0][0].UserID != "u0" || batches[1][0].UserID != "u100" {
		t.Fatalf("batches not oldest-first: %q, %q", batches[0][0].UserID, batches[1][0].UserID)
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total != 150 {
		t.Fatalf("events processed = %d, want 150 (no drops)", total)
	}
}

func TestScheduler_EmptyQueueIsNoop(t *testing.T) {
	q := NewQueue()
	agg := &captureAggregator{}
	s := NewScheduler(SchedulerConfig{
		Interval:     5 * time.Millisecond,
		MaxBatchSize: 100,
	}, q, agg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	if batches := agg.snapshot(); len(batches) != 0 {
		t.Fatalf("empty queue produced %d batches, want 0", len(batches))
	}
}

func TestScheduler_FlushesQueueOnShutdown(t *testing.T) {
	q := NewQueue()
	for _, ev := range makeEvents(30) {
		q.Enqueue(ev)
	}

	agg := &captureAggregator{}
	// Interval far beyond the test duration: only the shutdown drain can
	// deliver the events.
	s := NewScheduler(SchedulerConfig{
		Interval:     time.Hour,
		MaxBatchSize: 100,
	}, q, agg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	batches := agg.snapshot()
	if len(batches) != 1 || len(batches[0]) != 30 {
		t.Fatalf("shutdown drain delivered %d batches, want one batch of 30", len(batches))
	}
	if q.Len() != 0 {
		t.Fatalf("queue depth = %d after shutdown, want 0", q.Len())
	}
}

func TestScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, NewQueue(), &captureAggregator{}, zap.NewNop())
	if s.interval != DefaultBatchInterval {
		t.Fatalf("interval = %v, want %v", s.interval, DefaultBatchInterval)
	}
	if s.maxBatch != DefaultMaxBatchSize {
		t.Fatalf("maxBatch = %d, want %d", s.maxBatch, DefaultMaxBatchSize)
	}
}
