package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bookshare/internal/models"
)

// SubmitRequest files a pending borrow request for bookID. The book is not
// reserved here, so several pending requests may target the same copy.
func (e *Engine) SubmitRequest(ctx context.Context, actor models.Actor, bookID string) (req *models.Request, err error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if actor.IsLeader() {
		return nil, fmt.Errorf("%w: chapter leaders do not borrow books", ErrUnauthorized)
	}
	if bookID == "" {
		return nil, fmt.Errorf("%w: book id is required", ErrInvalidInput)
	}

	ctx, span := e.span(ctx, "submit_request", actor, attribute.String("book.id", bookID))
	defer func() { endSpan(span, err) }()

	book, err := e.store.Books().Get(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}

	req = &models.Request{
		BookID:           book.ID,
		BookTitle:        book.Title,
		RequestedBy:      actor.UID,
		RequestedByEmail: actor.Email,
		RequestedByName:  actor.FullName,
		RequestedByPhone: actor.Phone,
		ChapterLocation:  chapterOr(book.ChapterLocation),
		Status:           models.StatusPending,
		Timestamp:        e.store.Now(),
	}
	if err := e.store.Requests().Create(ctx, req); err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}

	e.metrics.Transition(string(KindRequest), string(models.StatusPending))
	e.logger.Info("request submitted", "request_id", req.ID, "book_id", book.ID, "requested_by", actor.UID)
	return req, nil
}

// DonationInput carries the fields a student fills in when donating.
type DonationInput struct {
	BookTitle         string
	Author            string
	ISBN              string
	Subject           string
	Level             string
	Condition         string
	PublishingCompany string
	UnusedTests       int
	Description       string
	ReturnDate        string
	DonorName         string
	DonorPhone        string
}

// SubmitDonation files a pending donation. Only students donate; donor
// contact details fall back to the donor's profile.
func (e *Engine) SubmitDonation(ctx context.Context, actor models.Actor, in DonationInput) (don *models.Donation, err error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, fmt.Errorf("%w: only students can donate", ErrUnauthorized)
	}
	if strings.TrimSpace(in.BookTitle) == "" {
		return nil, fmt.Errorf("%w: book title is required", ErrInvalidInput)
	}
	if in.ReturnDate == "" {
		return nil, fmt.Errorf("%w: return date is required", ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, in.ReturnDate); err != nil {
		return nil, fmt.Errorf("%w: return date %q is not YYYY-MM-DD", ErrInvalidInput, in.ReturnDate)
	}
	if in.UnusedTests < 0 {
		return nil, fmt.Errorf("%w: unused tests cannot be negative", ErrInvalidInput)
	}

	ctx, span := e.span(ctx, "submit_donation", actor)
	defer func() { endSpan(span, err) }()

	don = &models.Donation{
		BookTitle:         strings.TrimSpace(in.BookTitle),
		Author:            in.Author,
		ISBN:              in.ISBN,
		Subject:           in.Subject,
		Level:             in.Level,
		Condition:         in.Condition,
		PublishingCompany: in.PublishingCompany,
		UnusedTests:       in.UnusedTests,
		Description:       in.Description,
		ReturnDate:        in.ReturnDate,
		DonorName:         firstNonEmpty(in.DonorName, actor.FullName),
		DonorPhone:        firstNonEmpty(in.DonorPhone, actor.Phone),
		DonatedBy:         actor.UID,
		DonatedByEmail:    actor.Email,
		ChapterLocation:   chapterOr(actor.ChapterLocation),
		Status:            models.StatusPending,
		Timestamp:         e.store.Now(),
	}
	if err := e.store.Donations().Create(ctx, don); err != nil {
		return nil, fmt.Errorf("submit donation: %w", err)
	}

	e.metrics.Transition(string(KindDonation), string(models.StatusPending))
	e.logger.Info("donation submitted", "donation_id", don.ID, "donated_by", actor.UID, "chapter", don.ChapterLocation)
	return don, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
