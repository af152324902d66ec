// Package store implements the document store over gorm: typed collections
// with create/get/query/update/delete, atomic batches, live queries fed by
// the change feed, and a set-union insert for opportunity volunteers.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"bookshare/internal/changefeed"
	"bookshare/internal/models"
)

// Collection names, shared with change-feed subscribers.
const (
	CollectionBooks         = "books"
	CollectionRequests      = "requests"
	CollectionDonations     = "donations"
	CollectionNotifications = "notifications"
	CollectionEvents        = "events"
	CollectionOpportunities = "donation_opportunities"
	CollectionUsers         = "users"
	CollectionProfiles      = "profiles"
)

type Store struct {
	db     *gorm.DB
	feed   changefeed.Publisher
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	tx *txState // set while running inside Transaction
}

type txState struct {
	changes []changefeed.Change
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock replaces the server timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps db. feed may be nil, in which case mutations are not broadcast.
func New(db *gorm.DB, feed changefeed.Publisher, opts ...Option) *Store {
	s := &Store{
		db:     db,
		feed:   feed,
		logger: slog.Default(),
		tracer: otel.Tracer("bookshare/store"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Now is the server-assigned timestamp used for created/timestamp fields.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify(err)
	}
	return classify(sqlDB.PingContext(ctx))
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", classify(err))
	}
	return nil
}

// Transaction runs fn against a store bound to a single database
// transaction. All writes commit together or not at all, and their change
// events are published only after commit. Nested calls join the outer
// transaction. Errors returned by fn come back unchanged.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	ctx, span := s.tracer.Start(ctx, "store.transaction")
	defer span.End()

	state := &txState{}
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		child := *s
		child.db = gtx
		child.tx = state
		fnErr = fn(&child)
		return fnErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if fnErr != nil {
			return fnErr
		}
		return fmt.Errorf("commit: %w", classify(err))
	}

	s.publish(ctx, state.changes)
	return nil
}

func (s *Store) record(ch changefeed.Change) {
	if s.tx == nil {
		s.publish(context.Background(), []changefeed.Change{ch})
		return
	}
	s.tx.changes = append(s.tx.changes, ch)
}

func (s *Store) publish(ctx context.Context, changes []changefeed.Change) {
	if s.feed == nil || len(changes) == 0 {
		return
	}
	// The write is committed; publishing must not depend on the caller staying around.
	if err := s.feed.Publish(context.WithoutCancel(ctx), changes...); err != nil {
		s.logger.Warn("publishing changes", "count", len(changes), "error", err)
	}
}

func (s *Store) change(collection string, op changefeed.Op, id string, before, after any) changefeed.Change {
	return changefeed.Change{
		Collection: collection,
		DocumentID: id,
		Op:         op,
		Before:     image(before),
		After:      image(after),
		At:         s.Now(),
	}
}

func image(doc any) json.RawMessage {
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return raw
}

func (s *Store) Books() Collection[models.Book] {
	return Collection[models.Book]{s: s, name: CollectionBooks}
}

func (s *Store) Requests() Collection[models.Request] {
	return Collection[models.Request]{s: s, name: CollectionRequests}
}

func (s *Store) Donations() Collection[models.Donation] {
	return Collection[models.Donation]{s: s, name: CollectionDonations}
}

func (s *Store) Notifications() Collection[models.Notification] {
	return Collection[models.Notification]{s: s, name: CollectionNotifications}
}

func (s *Store) Events() Collection[models.Event] {
	return Collection[models.Event]{s: s, name: CollectionEvents}
}

func (s *Store) Opportunities() Collection[models.DonationOpportunity] {
	return Collection[models.DonationOpportunity]{s: s, name: CollectionOpportunities}
}

func (s *Store) Users() Collection[models.User] {
	return Collection[models.User]{s: s, name: CollectionUsers}
}

func (s *Store) Profiles() Collection[models.Profile] {
	return Collection[models.Profile]{s: s, name: CollectionProfiles}
}
