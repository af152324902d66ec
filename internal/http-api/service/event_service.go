package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/store"
)

type EventInput struct {
	Title       string
	Description string
	Date        string // YYYY-MM-DD
	Location    string
}

type EventService interface {
	Create(ctx context.Context, actor models.Actor, in EventInput) (*models.Event, error)
	List(ctx context.Context, actor models.Actor) ([]models.Event, error)
}

type eventService struct {
	store *store.Store
}

func NewEventService(st *store.Store) EventService {
	return &eventService{store: st}
}

func (s *eventService) Create(ctx context.Context, actor models.Actor, in EventInput) (*models.Event, error) {
	if !actor.IsLeader() {
		return nil, fmt.Errorf("%w: chapter leaders only", lifecycle.ErrUnauthorized)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", lifecycle.ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", lifecycle.ErrInvalidInput, in.Date)
	}

	ev := &models.Event{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Date:            in.Date,
		Location:        in.Location,
		ChapterLocation: actor.ChapterLocation,
		CreatedBy:       actor.Email,
		Timestamp:       s.store.Now(),
	}
	if err := s.store.Events().Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *eventService) List(ctx context.Context, actor models.Actor) ([]models.Event, error) {
	return s.store.Events().Query(ctx, store.Filter{"chapter_location": actor.ChapterLocation}, "timestamp DESC")
}
