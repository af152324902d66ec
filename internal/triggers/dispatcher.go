package triggers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookshare/internal/changefeed"
	"bookshare/internal/models"
	"bookshare/internal/store"
)

// DefaultDrainTimeout bounds how long queued edges may run after shutdown.
const DefaultDrainTimeout = 5 * time.Second

// Dispatcher is the request-update hook: it feeds every committed change to
// the requests collection through the due-date trigger.
type Dispatcher struct {
	feed    changefeed.Subscriber
	trigger *DueDateTrigger
	workers int
	logger  *slog.Logger

	// DrainTimeout caps the wait for queued edges once Run's context ends;
	// after it the remaining tasks are cancelled.
	DrainTimeout time.Duration
}

func NewDispatcher(feed changefeed.Subscriber, trigger *DueDateTrigger, workers int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		feed:    feed,
		trigger: trigger,
		workers: workers,
		logger:  logger.With("component", "triggers", "trigger", NameDueDate),

		DrainTimeout: DefaultDrainTimeout,
	}
}

// Run subscribes, reconciles approvals it may have missed, then handles
// changes until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	sub, err := d.feed.Subscribe(ctx, store.CollectionRequests)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	defer sub.Close()

	if n, err := d.trigger.Reconcile(ctx); err != nil {
		d.logger.Warn("startup reconcile failed", "error", err)
	} else if n > 0 {
		d.logger.Info("startup reconcile stamped missed approvals", "requests", n)
	}

	// Queued edges are finished on shutdown rather than dropped.
	pool := NewWorkerPool(context.WithoutCancel(ctx), d.workers, d.logger)
	pool.Start()
	defer d.drain(pool)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ch, ok := <-sub.C:
			if !ok {
				return changefeed.ErrClosed
			}
			if ch.Op != changefeed.OpUpdate {
				continue
			}
			pool.Submit(func(ctx context.Context) error {
				return d.handle(ctx, ch)
			})
		}
	}
}

// drain waits for queued edges, cancelling them once DrainTimeout passes.
func (d *Dispatcher) drain(pool *WorkerPool) {
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.DrainTimeout):
		d.logger.Warn("drain timed out, cancelling queued edges", "timeout", d.DrainTimeout)
		pool.Shutdown()
		<-done
	}
}

func (d *Dispatcher) handle(ctx context.Context, ch changefeed.Change) error {
	var before, after models.Request
	if _, err := ch.DecodeBefore(&before); err != nil {
		return fmt.Errorf("decode before image of %s: %w", ch.DocumentID, err)
	}
	ok, err := ch.DecodeAfter(&after)
	if err != nil {
		return fmt.Errorf("decode after image of %s: %w", ch.DocumentID, err)
	}
	if !ok {
		return nil
	}
	_, err = d.trigger.OnRequestUpdated(ctx, before, after)
	return err
}
