package service

import (
	"context"
	"fmt"

	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/reminders"
	"bookshare/internal/store"
)

// LendingService exposes the request and donation lifecycle.
type LendingService interface {
	SubmitRequest(ctx context.Context, actor models.Actor, bookID string) (*models.Request, error)
	SubmitDonation(ctx context.Context, actor models.Actor, in lifecycle.DonationInput) (*models.Donation, error)
	Approve(ctx context.Context, actor models.Actor, ref lifecycle.Ref, sched lifecycle.Schedule) error
	Reject(ctx context.Context, actor models.Actor, ref lifecycle.Ref) error
	MarkReturned(ctx context.Context, actor models.Actor, ref lifecycle.Ref) error
	ClearResolved(ctx context.Context, actor models.Actor) (lifecycle.ClearResult, error)
	OwnRequests(ctx context.Context, actor models.Actor) ([]models.Request, error)
	Reminders(ctx context.Context, actor models.Actor) ([]reminders.Reminder, error)
	PickupNotices(ctx context.Context, actor models.Actor) ([]reminders.Pickup, error)
	ChapterRequests(ctx context.Context, actor models.Actor) ([]models.Request, error)
	Donations(ctx context.Context, actor models.Actor) ([]models.Donation, error)
}

type lendingService struct {
	*lifecycle.Engine
	store *store.Store
}

func NewLendingService(engine *lifecycle.Engine, st *store.Store) LendingService {
	return &lendingService{Engine: engine, store: st}
}

// ChapterRequests lists every request in the leader's chapter, newest first.
func (s *lendingService) ChapterRequests(ctx context.Context, actor models.Actor) ([]models.Request, error) {
	if !actor.IsLeader() {
		return nil, fmt.Errorf("%w: chapter leaders only", lifecycle.ErrUnauthorized)
	}
	reqs, err := s.store.Requests().Query(ctx, store.Filter{"chapter_location": actor.ChapterLocation}, "timestamp DESC")
	if err != nil {
		return nil, fmt.Errorf("chapter requests: %w", err)
	}
	return reqs, nil
}

// Donations lists the chapter's donations for a leader and the caller's own
// donations for a student, newest first.
func (s *lendingService) Donations(ctx context.Context, actor models.Actor) ([]models.Donation, error) {
	if actor.UID == "" {
		return nil, fmt.Errorf("%w: sign in first", lifecycle.ErrUnauthorized)
	}
	filter := store.Filter{"donated_by": actor.UID}
	if actor.IsLeader() {
		filter = store.Filter{"chapter_location": actor.ChapterLocation}
	}
	dons, err := s.store.Donations().Query(ctx, filter, "timestamp DESC")
	if err != nil {
		return nil, fmt.Errorf("donations: %w", err)
	}
	return dons, nil
}
