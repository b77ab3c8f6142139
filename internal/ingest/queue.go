package ingest

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/ecomstream/analytics-pipeline/internal/event"
)

// Queue is the hand-off point between the consumer goroutine and the
// batch scheduler, the only state the two paths share. Enqueue never
// blocks and never touches I/O. The queue is unbounded; sustained
// overload shows up as depth growth, which the scheduler logs each tick.
type Queue struct {
	mu  sync.Mutex
	buf *queue.Queue
}

func NewQueue() *Queue {
	return &Queue{buf: queue.New()}
}

func (q *Queue) Enqueue(ev *event.AnalyticsEvent) {
	q.mu.Lock()
	q.buf.Add(ev)
	q.mu.Unlock()
}

// Drain atomically removes and returns up to max events in FIFO order.
// Anything beyond max stays queued for the next drain.
func (q *Queue) Drain(max int) []*event.AnalyticsEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.buf.Length()
	if n == 0 || max <= 0 {
		return nil
	}
	if n > max {
		n = max
	}

	batch := make([]*event.AnalyticsEvent, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, q.buf.Remove().(*event.AnalyticsEvent))
	}
	return batch
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Length()
}
