package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookshare/internal/changefeed"
	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/reminders"
	"bookshare/internal/store"
)

// Dashboard is the role-scoped home screen. Lists are newest first.
type Dashboard struct {
	Role        models.Role          `json:"role"`
	Requests    []models.Request     `json:"requests"`
	Donations   []models.Donation    `json:"donations"`
	Events      []models.Event       `json:"events"`
	Reminders   []reminders.Reminder `json:"reminders,omitempty"`
	Pickups     []reminders.Pickup   `json:"pickups,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

type DashboardService interface {
	Snapshot(ctx context.Context, actor models.Actor) (*Dashboard, error)
	// Watch calls onChange with a fresh dashboard whenever the requests,
	// donations or events behind it change. Calls are serialised.
	Watch(ctx context.Context, actor models.Actor, onChange func(*Dashboard, error)) (cancel func(), err error)
}

type dashboardService struct {
	store *store.Store
	feed  changefeed.Subscriber
	loc   *time.Location
}

func NewDashboardService(st *store.Store, feed changefeed.Subscriber, loc *time.Location) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardService{store: st, feed: feed, loc: loc}
}

var newestFirst = []string{"timestamp DESC"}

type dashboardFilters struct {
	requests, donations, events store.Filter
}

func filtersFor(actor models.Actor) dashboardFilters {
	f := dashboardFilters{events: store.Filter{"chapter_location": actor.ChapterLocation}}
	if actor.IsLeader() {
		f.requests = store.Filter{"chapter_location": actor.ChapterLocation}
		f.donations = store.Filter{"chapter_location": actor.ChapterLocation}
	} else {
		f.requests = store.Filter{"requested_by": actor.UID}
		f.donations = store.Filter{"donated_by": actor.UID}
	}
	return f
}

func (s *dashboardService) Snapshot(ctx context.Context, actor models.Actor) (*Dashboard, error) {
	if actor.UID == "" {
		return nil, fmt.Errorf("%w: sign in first", lifecycle.ErrUnauthorized)
	}
	f := filtersFor(actor)

	reqs, err := s.store.Requests().Query(ctx, f.requests, newestFirst...)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	dons, err := s.store.Donations().Query(ctx, f.donations, newestFirst...)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	evs, err := s.store.Events().Query(ctx, f.events, newestFirst...)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return s.build(actor, reqs, dons, evs), nil
}

// build assembles a dashboard. Reminders are recomputed against the current
// time on every call.
func (s *dashboardService) build(actor models.Actor, reqs []models.Request, dons []models.Donation, evs []models.Event) *Dashboard {
	now := s.store.Now()
	d := &Dashboard{
		Role:        actor.Role,
		Requests:    reqs,
		Donations:   dons,
		Events:      evs,
		GeneratedAt: now,
	}
	if !actor.IsLeader() {
		d.Reminders = reminders.Compute(reqs, now.In(s.loc))
		d.Pickups = reminders.Pickups(reqs)
	}
	return d
}

const (
	haveRequests = 1 << iota
	haveDonations
	haveEvents

	haveAll = haveRequests | haveDonations | haveEvents
)

type dashboardWatch struct {
	svc      *dashboardService
	actor    models.Actor
	onChange func(*Dashboard, error)

	mu        sync.Mutex
	have      int
	requests  []models.Request
	donations []models.Donation
	events    []models.Event
}

// update stores one list and emits once every list has arrived.
func (w *dashboardWatch) update(bit int, apply func(), err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.onChange(nil, err)
		return
	}
	apply()
	w.have |= bit
	if w.have == haveAll {
		w.onChange(w.svc.build(w.actor, w.requests, w.donations, w.events), nil)
	}
}

func (s *dashboardService) Watch(ctx context.Context, actor models.Actor, onChange func(*Dashboard, error)) (func(), error) {
	if actor.UID == "" {
		return nil, fmt.Errorf("%w: sign in first", lifecycle.ErrUnauthorized)
	}
	f := filtersFor(actor)
	w := &dashboardWatch{svc: s, actor: actor, onChange: onChange}

	var cancels []func()
	cancelAll := func() {
		for _, c := range cancels {
			c()
		}
	}

	cancel, err := store.Watch(ctx, s.feed, s.store.Requests(), f.requests, newestFirst, func(v []models.Request, err error) {
		w.update(haveRequests, func() { w.requests = v }, err)
	})
	if err != nil {
		return nil, err
	}
	cancels = append(cancels, cancel)

	cancel, err = store.Watch(ctx, s.feed, s.store.Donations(), f.donations, newestFirst, func(v []models.Donation, err error) {
		w.update(haveDonations, func() { w.donations = v }, err)
	})
	if err != nil {
		cancelAll()
		return nil, err
	}
	cancels = append(cancels, cancel)

	cancel, err = store.Watch(ctx, s.feed, s.store.Events(), f.events, newestFirst, func(v []models.Event, err error) {
		w.update(haveEvents, func() { w.events = v }, err)
	})
	if err != nil {
		cancelAll()
		return nil, err
	}
	cancels = append(cancels, cancel)

	return cancelAll, nil
}
