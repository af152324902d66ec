package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

// Approve moves a pending request or donation to approved with the given
// schedule. A request also reserves its book (borrowed by the requester);
// a donation creates a new available book. Everything commits together.
func (e *Engine) Approve(ctx context.Context, actor models.Actor, ref Ref, sched Schedule) (err error) {
	if err := requireLeader(actor); err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("%w: missing entity", ErrInvalidInput)
	}
	if err := sched.validate(); err != nil {
		return err
	}

	ctx, span := e.span(ctx, "approve", actor, attribute.String("entity.kind", string(ref.Kind())), attribute.String("entity.id", ref.ID()))
	defer func() { endSpan(span, err) }()

	switch r := ref.(type) {
	case RequestRef:
		err = e.approveRequest(ctx, actor, string(r), sched)
	case DonationRef:
		err = e.approveDonation(ctx, actor, string(r), sched)
	}
	if err != nil {
		return err
	}

	e.metrics.Transition(string(ref.Kind()), string(models.StatusApproved))
	e.logger.Info("approved", "kind", ref.Kind(), "id", ref.ID(), "actor", actor.UID, "return_date", sched.ReturnDate)
	return nil
}

func scheduleFields(status models.Status, sched Schedule) store.Fields {
	return store.Fields{
		"status":                string(status),
		"meeting_date":          sched.MeetingDate,
		"meeting_time":          sched.MeetingTime,
		"meeting_location_type": sched.MeetingLocationType,
		"return_date":           sched.ReturnDate,
	}
}

func (e *Engine) approveRequest(ctx context.Context, actor models.Actor, id string, sched Schedule) error {
	return e.store.Transaction(ctx, func(tx *store.Store) error {
		req, err := tx.Requests().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("approve request: %w", err)
		}
		if err := requireChapter(actor, req.ChapterLocation); err != nil {
			return err
		}
		if req.Status != models.StatusPending {
			return fmt.Errorf("%w: request %s is %s", ErrInvalidState, id, req.Status)
		}

		var book *models.Book
		if req.BookID != "" {
			book, err = tx.Books().Get(ctx, req.BookID)
			if err != nil {
				return fmt.Errorf("approve request: %w", err)
			}
			if book.Status == models.BookBorrowed {
				return fmt.Errorf("%w: book %s is already borrowed", ErrInvalidState, book.ID)
			}
		}

		if err := tx.Requests().Update(ctx, id, scheduleFields(models.StatusApproved, sched)); err != nil {
			return fmt.Errorf("approve request: %w", err)
		}
		if book == nil {
			return nil
		}
		err = tx.Books().Update(ctx, book.ID, store.Fields{
			"status":           string(models.BookBorrowed),
			"current_borrower": req.RequestedBy,
			"borrowed_date":    tx.Now(),
			"return_date":      sched.ReturnDate,
		})
		if err != nil {
			return fmt.Errorf("reserve book: %w", err)
		}
		return nil
	})
}

func (e *Engine) approveDonation(ctx context.Context, actor models.Actor, id string, sched Schedule) error {
	return e.store.Transaction(ctx, func(tx *store.Store) error {
		don, err := tx.Donations().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("approve donation: %w", err)
		}
		if err := requireChapter(actor, don.ChapterLocation); err != nil {
			return err
		}
		if don.Status != models.StatusPending {
			return fmt.Errorf("%w: donation %s is %s", ErrInvalidState, id, don.Status)
		}

		now := tx.Now()
		book := &models.Book{
			Title:                don.BookTitle,
			Author:               don.Author,
			ISBN:                 don.ISBN,
			Subject:              don.Subject,
			Level:                don.Level,
			Condition:            don.Condition,
			Description:          don.Description,
			PublishingCompany:    don.PublishingCompany,
			RemainingUnusedTests: max(don.UnusedTests, 0),
			ChapterLocation:      don.ChapterLocation,
			Status:               models.BookAvailable,
			ReturnDate:           sched.ReturnDate,
			DonorName:            don.DonorName,
			DonorPhone:           don.DonorPhone,
			DonatedBy:            don.DonatedByEmail,
			Timestamp:            now,
		}
		if err := tx.Books().Create(ctx, book); err != nil {
			return fmt.Errorf("catalog donation: %w", err)
		}

		fields := scheduleFields(models.StatusApproved, sched)
		fields["book_id"] = book.ID
		fields["reviewed_at"] = now
		if err := tx.Donations().Update(ctx, id, fields); err != nil {
			return fmt.Errorf("approve donation: %w", err)
		}
		return nil
	})
}

// Reject moves a pending request or donation to rejected. Books are untouched.
func (e *Engine) Reject(ctx context.Context, actor models.Actor, ref Ref) (err error) {
	if err := requireLeader(actor); err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("%w: missing entity", ErrInvalidInput)
	}

	ctx, span := e.span(ctx, "reject", actor, attribute.String("entity.kind", string(ref.Kind())), attribute.String("entity.id", ref.ID()))
	defer func() { endSpan(span, err) }()

	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		var chapter string
		var status models.Status
		switch ref.(type) {
		case RequestRef:
			req, err := tx.Requests().Get(ctx, ref.ID())
			if err != nil {
				return fmt.Errorf("reject request: %w", err)
			}
			chapter, status = req.ChapterLocation, req.Status
		case DonationRef:
			don, err := tx.Donations().Get(ctx, ref.ID())
			if err != nil {
				return fmt.Errorf("reject donation: %w", err)
			}
			chapter, status = don.ChapterLocation, don.Status
		}
		if err := requireChapter(actor, chapter); err != nil {
			return err
		}
		if status != models.StatusPending {
			return fmt.Errorf("%w: %s %s is %s", ErrInvalidState, ref.Kind(), ref.ID(), status)
		}

		fields := store.Fields{"status": string(models.StatusRejected)}
		if ref.Kind() == KindDonation {
			fields["reviewed_at"] = tx.Now()
			return tx.Donations().Update(ctx, ref.ID(), fields)
		}
		return tx.Requests().Update(ctx, ref.ID(), fields)
	})
	if err != nil {
		return err
	}

	e.metrics.Transition(string(ref.Kind()), string(models.StatusRejected))
	e.logger.Info("rejected", "kind", ref.Kind(), "id", ref.ID(), "actor", actor.UID)
	return nil
}

// MarkReturned closes an approved request and puts its book back on the
// shelf. Donations have no returned state.
func (e *Engine) MarkReturned(ctx context.Context, actor models.Actor, ref Ref) (err error) {
	if err := requireLeader(actor); err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("%w: missing entity", ErrInvalidInput)
	}
	if ref.Kind() != KindRequest {
		return fmt.Errorf("%w: only requests can be returned", ErrInvalidState)
	}
	id := ref.ID()

	ctx, span := e.span(ctx, "mark_returned", actor, attribute.String("entity.id", id))
	defer func() { endSpan(span, err) }()

	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		req, err := tx.Requests().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}
		if err := requireChapter(actor, req.ChapterLocation); err != nil {
			return err
		}
		if req.Status != models.StatusApproved {
			return fmt.Errorf("%w: request %s is %s", ErrInvalidState, id, req.Status)
		}

		err = tx.Requests().Update(ctx, id, store.Fields{
			"status":        string(models.StatusReturned),
			"returned_date": tx.Now(),
		})
		if err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}
		if req.BookID == "" {
			return nil
		}

		err = tx.Books().Update(ctx, req.BookID, store.Fields{
			"status":           string(models.BookAvailable),
			"current_borrower": "",
			"borrowed_date":    nil,
			"return_date":      "",
		})
		if errors.Is(err, store.ErrNotFound) {
			// The copy was removed from the catalog while on loan.
			e.logger.Warn("returned request references a deleted book", "request_id", id, "book_id", req.BookID)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	e.metrics.Transition(string(KindRequest), string(models.StatusReturned))
	e.logger.Info("returned", "request_id", id, "actor", actor.UID)
	return nil
}
