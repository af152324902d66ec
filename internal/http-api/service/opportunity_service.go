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

type OpportunityInput struct {
	Title       string
	Description string
	NeededItems []string
	Deadline    *time.Time
}

type OpportunityService interface {
	Create(ctx context.Context, actor models.Actor, in OpportunityInput) (*models.DonationOpportunity, error)
	List(ctx context.Context, actor models.Actor) ([]models.DonationOpportunity, error)
	RSVP(ctx context.Context, actor models.Actor, id string) (bool, error)
}

type opportunityService struct {
	store *store.Store
}

func NewOpportunityService(st *store.Store) OpportunityService {
	return &opportunityService{store: st}
}

func (s *opportunityService) Create(ctx context.Context, actor models.Actor, in OpportunityInput) (*models.DonationOpportunity, error) {
	if !actor.IsLeader() {
		return nil, fmt.Errorf("%w: chapter leaders only", lifecycle.ErrUnauthorized)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", lifecycle.ErrInvalidInput)
	}

	items := make([]string, 0, len(in.NeededItems))
	for _, item := range in.NeededItems {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	opp := &models.DonationOpportunity{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		NeededItems:     items,
		Deadline:        in.Deadline,
		ChapterLocation: actor.ChapterLocation,
		CreatedBy:       actor.Email,
		Volunteers:      []models.Volunteer{},
		Timestamp:       s.store.Now(),
	}
	if err := s.store.Opportunities().Create(ctx, opp); err != nil {
		return nil, fmt.Errorf("create opportunity: %w", err)
	}
	return opp, nil
}

func (s *opportunityService) List(ctx context.Context, actor models.Actor) ([]models.DonationOpportunity, error) {
	return s.store.Opportunities().Preload("Volunteers").
		Query(ctx, store.Filter{"chapter_location": actor.ChapterLocation}, "timestamp DESC")
}

// RSVP adds the actor to the opportunity's volunteers. It reports false when
// the actor had already signed up.
func (s *opportunityService) RSVP(ctx context.Context, actor models.Actor, id string) (bool, error) {
	opp, err := s.store.Opportunities().Get(ctx, id)
	if err != nil {
		return false, err
	}
	if opp.ChapterLocation != actor.ChapterLocation {
		return false, fmt.Errorf("%w: opportunity belongs to another chapter", lifecycle.ErrUnauthorized)
	}
	return s.store.AddVolunteer(ctx, id, models.Volunteer{UID: actor.UID, Email: actor.Email})
}
