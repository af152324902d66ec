package triggers

import (
	"context"
	"fmt"
	"time"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

// DailyReminders scans approved requests and writes due-tomorrow and
// overdue notifications. Each run is one batch. Runs are not de-duplicated:
// running twice in the same window notifies twice.
type DailyReminders struct {
	store *store.Store
	cfg   Config
}

type RunSummary struct {
	Scanned     int
	DueTomorrow int
	Overdue     int
}

func (s RunSummary) Emitted() int {
	return s.DueTomorrow + s.Overdue
}

func NewDailyReminders(st *store.Store, cfg Config) *DailyReminders {
	cfg = cfg.withDefaults()
	cfg.Logger = cfg.Logger.With("component", "triggers", "trigger", NameDaily)
	return &DailyReminders{store: st, cfg: cfg}
}

// Run performs one sweep and records its outcome in the trigger state table.
func (d *DailyReminders) Run(ctx context.Context) (RunSummary, error) {
	started := d.store.Now()
	sum, err := d.sweep(ctx)
	d.cfg.Metrics.TriggerRun(NameDaily, err)
	d.saveState(ctx, started, sum, err)

	if err != nil {
		d.cfg.Logger.Error("daily reminders failed", "error", err)
		return sum, err
	}
	d.cfg.Metrics.Notifications(models.NotificationDueTomorrow, sum.DueTomorrow)
	d.cfg.Metrics.Notifications(models.NotificationOverdue, sum.Overdue)
	d.cfg.Logger.Info("daily reminders sent", "scanned", sum.Scanned, "due_tomorrow", sum.DueTomorrow, "overdue", sum.Overdue)
	return sum, nil
}

func (d *DailyReminders) sweep(ctx context.Context) (RunSummary, error) {
	var sum RunSummary
	approved, err := d.store.Requests().Query(ctx, store.Filter{"status": string(models.StatusApproved)})
	if err != nil {
		return sum, fmt.Errorf("daily reminders: %w", err)
	}

	now := d.store.Now()
	var batch []*models.Notification
	for _, req := range approved {
		if req.DueDate == nil {
			continue
		}
		sum.Scanned++
		if n := reminderFor(req, req.DueDate.Sub(now), now); n != nil {
			batch = append(batch, n)
			if n.Type == models.NotificationOverdue {
				sum.Overdue++
			} else {
				sum.DueTomorrow++
			}
		}
	}
	if len(batch) == 0 {
		return sum, nil
	}

	err = d.store.Transaction(ctx, func(tx *store.Store) error {
		for _, n := range batch {
			if err := tx.Notifications().Create(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RunSummary{Scanned: sum.Scanned}, fmt.Errorf("daily reminders: write batch: %w", err)
	}
	return sum, nil
}

// reminderFor classifies diff = dueDate - now: [1d, 2d] is due tomorrow,
// anything negative is overdue.
func reminderFor(req models.Request, diff time.Duration, now time.Time) *models.Notification {
	n := &models.Notification{
		UserID:    req.RequestedBy,
		RequestID: req.ID,
		Link:      myRequestsLink,
		CreatedAt: now,
	}
	switch {
	case diff >= day && diff <= 2*day:
		n.Type = models.NotificationDueTomorrow
		n.Title = "Due tomorrow"
		n.Message = fmt.Sprintf("“%s” is due tomorrow.", req.BookTitle)
	case diff < 0:
		n.Type = models.NotificationOverdue
		n.Title = "Overdue"
		n.Message = fmt.Sprintf("“%s” is overdue. Please return it.", req.BookTitle)
	default:
		return nil
	}
	return n
}

func (d *DailyReminders) saveState(ctx context.Context, started time.Time, sum RunSummary, runErr error) {
	state := &models.TriggerState{Name: NameDaily, LastRunAt: &started, Status: "completed", Emitted: sum.Emitted()}
	if prev, err := d.store.TriggerState(ctx, NameDaily); err == nil {
		state.LastSuccessAt = prev.LastSuccessAt
	}
	if runErr != nil {
		state.Status = "failed"
		state.ErrorMessage = runErr.Error()
		state.Emitted = 0
	} else {
		state.LastSuccessAt = &started
	}
	if err := d.store.SaveTriggerState(ctx, state); err != nil {
		d.cfg.Logger.Warn("saving trigger state", "error", err)
	}
}
