package triggers

import (
	"context"
	"fmt"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

// DueDateTrigger stamps approvedAt and dueDate on a request the moment it
// becomes approved, and tells the requester.
type DueDateTrigger struct {
	store *store.Store
	cfg   Config
}

func NewDueDateTrigger(st *store.Store, cfg Config) *DueDateTrigger {
	cfg = cfg.withDefaults()
	cfg.Logger = cfg.Logger.With("component", "triggers", "trigger", NameDueDate)
	return &DueDateTrigger{store: st, cfg: cfg}
}

// OnRequestUpdated fires only on a non-approved -> approved edge. Replays
// of the same edge are absorbed: the stamp is written only while approvedAt
// is still empty, and the notification goes out only with that write.
func (t *DueDateTrigger) OnRequestUpdated(ctx context.Context, before, after models.Request) (bool, error) {
	if before.Status == models.StatusApproved || after.Status != models.StatusApproved {
		return false, nil
	}
	return t.stamp(ctx, after)
}

// Reconcile stamps approved requests that never received a due date, such
// as approvals that happened while no dispatcher was listening.
func (t *DueDateTrigger) Reconcile(ctx context.Context) (int, error) {
	missed, err := t.store.Requests().Query(ctx, store.Filter{
		"status":      string(models.StatusApproved),
		"approved_at": nil,
	})
	if err != nil {
		return 0, fmt.Errorf("reconcile due dates: %w", err)
	}

	stamped := 0
	for _, req := range missed {
		fired, err := t.stamp(ctx, req)
		if err != nil {
			t.cfg.Logger.Warn("reconcile: stamping failed", "request_id", req.ID, "error", err)
			continue
		}
		if fired {
			stamped++
		}
	}
	if stamped > 0 {
		t.cfg.Logger.Info("reconciled approvals", "stamped", stamped)
	}
	return stamped, nil
}

func (t *DueDateTrigger) stamp(ctx context.Context, req models.Request) (bool, error) {
	fired := false
	err := t.store.Transaction(ctx, func(tx *store.Store) error {
		now := tx.Now()
		due := now.Add(t.cfg.LoanPeriod)

		applied, err := tx.Requests().UpdateIf(ctx, req.ID,
			"approved_at IS NULL AND status = ?", []any{string(models.StatusApproved)},
			store.Fields{"approved_at": now, "due_date": due})
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		n := &models.Notification{
			UserID:    req.RequestedBy,
			Type:      models.NotificationRequestApproved,
			RequestID: req.ID,
			Title:     "Request approved",
			Message:   fmt.Sprintf("Your request for %q was approved. Due on %s.", req.BookTitle, due.In(t.cfg.Location).Format("1/2/2006")),
			Link:      myRequestsLink,
			CreatedAt: now,
		}
		if err := tx.Notifications().Create(ctx, n); err != nil {
			return err
		}
		fired = true
		return nil
	})
	t.cfg.Metrics.TriggerRun(NameDueDate, err)
	if err != nil {
		return false, fmt.Errorf("stamp due date for %s: %w", req.ID, err)
	}
	if fired {
		t.cfg.Metrics.Notifications(models.NotificationRequestApproved, 1)
		t.cfg.Logger.Info("due date stamped", "request_id", req.ID, "user_id", req.RequestedBy)
	}
	return fired, nil
}
