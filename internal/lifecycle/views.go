package lifecycle

import (
	"context"
	"fmt"

	"bookshare/internal/models"
	"bookshare/internal/reminders"
	"bookshare/internal/store"
)

// OwnRequests lists the actor's requests, newest first.
func (e *Engine) OwnRequests(ctx context.Context, actor models.Actor) ([]models.Request, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	reqs, err := e.store.Requests().Query(ctx, store.Filter{"requested_by": actor.UID}, "timestamp DESC")
	if err != nil {
		return nil, fmt.Errorf("own requests: %w", err)
	}
	return reqs, nil
}

// Reminders computes the student's active return reminders.
func (e *Engine) Reminders(ctx context.Context, actor models.Actor) ([]reminders.Reminder, error) {
	reqs, err := e.OwnRequests(ctx, actor)
	if err != nil {
		return nil, err
	}
	return reminders.Compute(reqs, e.store.Now().In(e.loc)), nil
}

// PickupNotices lists approved requests that have a hand-off scheduled.
func (e *Engine) PickupNotices(ctx context.Context, actor models.Actor) ([]reminders.Pickup, error) {
	reqs, err := e.OwnRequests(ctx, actor)
	if err != nil {
		return nil, err
	}
	return reminders.Pickups(reqs), nil
}
