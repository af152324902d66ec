package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/store"
)

// BookUpdate is a partial edit of catalog fields. Nil fields are left alone.
type BookUpdate struct {
	Title                *string
	Author               *string
	ISBN                 *string
	Subject              *string
	Level                *string
	Condition            *string
	PublishingCompany    *string
	Description          *string
	RemainingUnusedTests *int
}

type CatalogService interface {
	List(ctx context.Context) ([]models.Book, error)
	Get(ctx context.Context, id string) (*models.Book, error)
	ChapterBooks(ctx context.Context, actor models.Actor) ([]models.Book, error)
	Update(ctx context.Context, actor models.Actor, id string, upd BookUpdate) (*models.Book, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type catalogService struct {
	store  *store.Store
	logger *slog.Logger
}

func NewCatalogService(st *store.Store, logger *slog.Logger) CatalogService {
	return &catalogService{store: st, logger: logger.With("component", "catalog")}
}

func (s *catalogService) List(ctx context.Context) ([]models.Book, error) {
	return s.store.Books().Query(ctx, nil, "timestamp DESC")
}

func (s *catalogService) Get(ctx context.Context, id string) (*models.Book, error) {
	return s.store.Books().Get(ctx, id)
}

func (s *catalogService) ChapterBooks(ctx context.Context, actor models.Actor) ([]models.Book, error) {
	if !actor.IsLeader() {
		return nil, fmt.Errorf("%w: chapter leaders only", lifecycle.ErrUnauthorized)
	}
	return s.store.Books().Query(ctx, store.Filter{"chapter_location": actor.ChapterLocation}, "timestamp DESC")
}

func (s *catalogService) Update(ctx context.Context, actor models.Actor, id string, upd BookUpdate) (*models.Book, error) {
	book, err := s.ownedBook(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	fields := store.Fields{}
	set := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	set("title", upd.Title)
	set("author", upd.Author)
	set("isbn", upd.ISBN)
	set("subject", upd.Subject)
	set("level", upd.Level)
	set("condition", upd.Condition)
	set("publishing_company", upd.PublishingCompany)
	set("description", upd.Description)
	if upd.Title != nil && fields["title"] == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", lifecycle.ErrInvalidInput)
	}
	if upd.RemainingUnusedTests != nil {
		if *upd.RemainingUnusedTests < 0 {
			return nil, fmt.Errorf("%w: remaining unused tests cannot be negative", lifecycle.ErrInvalidInput)
		}
		fields["remaining_unused_tests"] = *upd.RemainingUnusedTests
	}
	if len(fields) == 0 {
		return book, nil
	}
	fields["last_modified"] = s.store.Now()

	if err := s.store.Books().Update(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	s.logger.Info("book updated", "book_id", id, "actor", actor.UID, "fields", len(fields)-1)
	return s.store.Books().Get(ctx, id)
}

func (s *catalogService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.ownedBook(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Books().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	s.logger.Info("book deleted", "book_id", id, "actor", actor.UID)
	return nil
}

// ownedBook loads a book the leader may edit.
func (s *catalogService) ownedBook(ctx context.Context, actor models.Actor, id string) (*models.Book, error) {
	if !actor.IsLeader() {
		return nil, fmt.Errorf("%w: chapter leaders only", lifecycle.ErrUnauthorized)
	}
	book, err := s.store.Books().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.ChapterLocation != actor.ChapterLocation {
		return nil, fmt.Errorf("%w: book belongs to another chapter", lifecycle.ErrUnauthorized)
	}
	return book, nil
}
