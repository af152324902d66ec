package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

// ItemFailure records one entity a bulk operation could not process.
type ItemFailure struct {
	ID  string
	Err error
}

type ClearResult struct {
	Deleted []string
	Failed  []ItemFailure
}

// Err joins the per-item failures, or returns nil when there were none.
func (r ClearResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.ID, f.Err))
	}
	return errors.Join(errs...)
}

// ClearResolved deletes finished requests the actor no longer needs to see.
// Students lose their own approved or returned requests whose meeting time
// has passed; leaders lose every approved, rejected or returned request in
// their chapter. Deletions run one at a time and a failure does not stop the
// rest; the returned error summarises any failures.
func (e *Engine) ClearResolved(ctx context.Context, actor models.Actor) (ClearResult, error) {
	var res ClearResult
	if err := requireSignedIn(actor); err != nil {
		return res, err
	}

	candidates, err := e.clearCandidates(ctx, actor)
	if err != nil {
		return res, fmt.Errorf("clear resolved: %w", err)
	}

	for _, req := range candidates {
		err := e.store.Requests().Delete(ctx, req.ID)
		switch {
		case err == nil:
			res.Deleted = append(res.Deleted, req.ID)
		case errors.Is(err, store.ErrNotFound):
			// Already gone.
		default:
			e.logger.Warn("clear resolved: delete failed", "request_id", req.ID, "error", err)
			res.Failed = append(res.Failed, ItemFailure{ID: req.ID, Err: err})
		}
	}

	e.metrics.ClearFailures(len(res.Failed))
	e.logger.Info("cleared resolved requests", "actor", actor.UID, "role", actor.Role,
		"deleted", len(res.Deleted), "failed", len(res.Failed))

	if err := res.Err(); err != nil {
		return res, fmt.Errorf("clear resolved: %d of %d deletions failed: %w", len(res.Failed), len(candidates), err)
	}
	return res, nil
}

func (e *Engine) clearCandidates(ctx context.Context, actor models.Actor) ([]models.Request, error) {
	if actor.IsLeader() {
		return e.store.Requests().Query(ctx, store.Filter{
			"chapter_location": actor.ChapterLocation,
			"status": []string{
				string(models.StatusApproved),
				string(models.StatusRejected),
				string(models.StatusReturned),
			},
		})
	}

	own, err := e.store.Requests().Query(ctx, store.Filter{
		"requested_by": actor.UID,
		"status":       []string{string(models.StatusApproved), string(models.StatusReturned)},
	})
	if err != nil {
		return nil, err
	}

	now := e.store.Now()
	past := own[:0]
	for _, req := range own {
		if at, ok := meetingAt(req, e.loc); ok && at.Before(now) {
			past = append(past, req)
		}
	}
	return past, nil
}
