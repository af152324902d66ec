package store

import (
	"context"
	"fmt"

	"bookshare/internal/changefeed"
)

// Watch is the live form of Query. onChange receives the current result
// right away and a fresh result after every committed change to the
// collection, until the returned cancel func is called or ctx ends. Every
// Watch must be paired with a call to cancel.
func Watch[T any](ctx context.Context, sub changefeed.Subscriber, c Collection[T], filter Filter, order []string, onChange func([]T, error)) (cancel func(), err error) {
	feed, err := sub.Subscribe(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", c.name, classify(err))
	}

	ctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer feed.Close()

		onChange(c.Query(ctx, filter, order...))
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-feed.C:
				if !ok {
					return
				}
				drain(feed.C)
				if ctx.Err() != nil {
					return
				}
				onChange(c.Query(ctx, filter, order...))
			}
		}
	}()

	return func() {
		stop()
		<-done
	}, nil
}

// drain discards changes already queued; one re-query covers them all.
func drain(c <-chan changefeed.Change) {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
