// Package lifecycle owns the request and donation state machines:
//
//	pending --approve--> approved --markReturned--> returned   (requests only)
//	pending --reject---> rejected
//
// Role checks run before any store access. Approval and its book side
// effect commit in one transaction. Concurrent transitions on the same
// entity are not serialised; the last write wins.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bookshare/internal/metrics"
	"bookshare/internal/models"
	"bookshare/internal/store"
)

type Engine struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
	loc     *time.Location
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLocation sets the zone used to read meeting dates and times.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func NewEngine(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("bookshare/lifecycle"),
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "lifecycle")
	return e
}

func (e *Engine) span(ctx context.Context, name string, actor models.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("actor.uid", actor.UID), attribute.String("actor.role", string(actor.Role)))
	return e.tracer.Start(ctx, "lifecycle."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireSignedIn(actor models.Actor) error {
	if actor.UID == "" {
		return fmt.Errorf("%w: sign in first", ErrUnauthorized)
	}
	return nil
}

func requireLeader(actor models.Actor) error {
	if err := requireSignedIn(actor); err != nil {
		return err
	}
	if !actor.IsLeader() {
		return fmt.Errorf("%w: chapter leaders only", ErrUnauthorized)
	}
	return nil
}

func requireChapter(actor models.Actor, chapter string) error {
	if actor.ChapterLocation != chapter {
		return fmt.Errorf("%w: %q belongs to another chapter", ErrUnauthorized, chapter)
	}
	return nil
}

func chapterOr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return models.DefaultChapter
}

// meetingAt combines a request's meeting date and time in loc.
func meetingAt(req models.Request, loc *time.Location) (time.Time, bool) {
	if req.MeetingDate == "" || req.MeetingTime == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(models.DateLayout+"T"+models.TimeLayout, req.MeetingDate+"T"+req.MeetingTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
