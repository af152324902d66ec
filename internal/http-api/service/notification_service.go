package service

import (
	"context"
	"fmt"

	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/store"
)

type NotificationService interface {
	List(ctx context.Context, actor models.Actor) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, actor models.Actor, id string) error
	MarkAllAsRead(ctx context.Context, actor models.Actor) (int, error)
}

type notificationService struct {
	store *store.Store
}

func NewNotificationService(st *store.Store) NotificationService {
	return &notificationService{store: st}
}

// List returns the actor's notifications, newest first, and how many are unread.
func (s *notificationService) List(ctx context.Context, actor models.Actor) ([]models.Notification, int, error) {
	ns, err := s.store.Notifications().Query(ctx, store.Filter{"user_id": actor.UID}, "created_at DESC")
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	unread := 0
	for _, n := range ns {
		if !n.Read {
			unread++
		}
	}
	return ns, unread, nil
}

// MarkAsRead marks one of the actor's notifications read. Someone else's
// notification is reported as not found.
func (s *notificationService) MarkAsRead(ctx context.Context, actor models.Actor, id string) error {
	n, err := s.store.Notifications().Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != actor.UID {
		return fmt.Errorf("notification %s: %w", id, lifecycle.ErrNotFound)
	}
	if n.Read {
		return nil
	}
	return s.store.Notifications().Update(ctx, id, store.Fields{"read": true})
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, actor models.Actor) (int, error) {
	unread, err := s.store.Notifications().Query(ctx, store.Filter{"user_id": actor.UID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	if len(unread) == 0 {
		return 0, nil
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		for _, n := range unread {
			if err := tx.Notifications().Update(ctx, n.ID, store.Fields{"read": true}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return len(unread), nil
}
