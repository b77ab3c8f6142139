package aggregate

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/event"
)

// Engine applies validated events to the three projections with
// upsert-with-increment semantics. A failed projection write is logged,
// counted, and abandoned; it is never retried and never stops the sibling
// writes or the rest of the batch.
type Engine struct {
	repo   Repository
	logger *zap.Logger
}

func NewEngine(repo Repository, logger *zap.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger,
	}
}

// BatchOutcome reports what a batch settled on. Applied and Failed count
// projection updates, not events: one event can fan out to three.
type BatchOutcome struct {
	Events  int
	Applied int
	Failed  int
}

// ProcessBatch applies events strictly in arrival order. Several events
// for the same key can share a batch, so event N+1 must not start until
// all of event N's writes, including the derived-metrics step, have
// settled.
func (e *Engine) ProcessBatch(ctx context.Context, batch []*event.AnalyticsEvent) BatchOutcome {
	outcome := BatchOutcome{Events: len(batch)}

	for _, ev := range batch {
		applied, err := e.Apply(ctx, ev)
		outcome.Applied += applied
		if err != nil {
			outcome.Failed += len(multierr.Errors(err))
			e.logger.Error("Event applied partially",
				zap.Error(err),
				zap.String("event_id", ev.ID.String()),
				zap.String("user_id", ev.UserID),
				zap.String("action", string(ev.Action)),
			)
		}
	}

	e.logger.Info("Batch aggregated",
		zap.Int("events", outcome.Events),
		zap.Int("applied_updates", outcome.Applied),
		zap.Int("failed_updates", outcome.Failed),
	)

	return outcome
}

// Apply fans one event out to the user, product, and shop projections.
// The three writes are independent and run concurrently; the returned
// error joins the individual failures and applied counts the writes that
// landed.
func (e *Engine) Apply(ctx context.Context, ev *event.AnalyticsEvent) (applied int, err error) {
	userDelta, productDelta, shopDelta := deltasFor(ev.Action)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	run := func(projection string, update func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updateErr := update()

			mu.Lock()
			defer mu.Unlock()
			if updateErr != nil {
				err = multierr.Append(err, fmt.Errorf("%s projection: %w", projection, updateErr))
				return
			}
			applied++
		}()
	}

	run("user", func() error {
		return e.repo.ApplyUser(ctx, ev, userDelta)
	})

	if ev.ProductID != "" {
		run("product", func() error {
			counters, applyErr := e.repo.ApplyProduct(ctx, ev, productDelta)
			if applyErr != nil {
				return applyErr
			}
			e.refreshRates(ctx, ev.ProductID, counters)
			return nil
		})
	}

	if ev.ShopID != "" {
		run("shop", func() error {
			return e.repo.ApplyShop(ctx, ev, shopDelta)
		})
	}

	wg.Wait()
	return applied, err
}

// refreshRates recomputes the derived conversion rates after a successful
// product update. Best-effort: a failure only leaves the rate fields
// stale, so it is logged at warning level and swallowed.
func (e *Engine) refreshRates(ctx context.Context, productID string, counters ProductCounters) {
	rates := computeRates(counters)
	if err := e.repo.UpdateProductRates(ctx, productID, rates); err != nil {
		e.logger.Warn("Failed to refresh derived product rates",
			zap.Error(err),
			zap.String("product_id", productID),
		)
	}
}
