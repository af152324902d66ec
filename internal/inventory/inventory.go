// Package inventory holds the older single-step approval path: it counts a
// test booklet out of the book and flips the request status, without any
// meeting schedule or borrowed-book bookkeeping. New code approves through
// lifecycle.Engine.Approve; this path stays for operators who run it from
// the admin CLI.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

type Helper struct {
	store      *store.Store
	logger     *slog.Logger
	loanPeriod time.Duration
}

// NewHelper returns a helper that stamps a return date loanPeriod after
// approval when the request has none.
func NewHelper(st *store.Store, loanPeriod time.Duration, logger *slog.Logger) *Helper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Helper{store: st, loanPeriod: loanPeriod, logger: logger.With("component", "inventory")}
}

// ApproveRequestAndAdjustInventory decrements the referenced book's
// remaining unused tests (never below zero) and marks the request approved.
// It does not check the request's current status.
func (h *Helper) ApproveRequestAndAdjustInventory(ctx context.Context, requestID string) error {
	return h.store.Transaction(ctx, func(tx *store.Store) error {
		req, err := tx.Requests().Get(ctx, requestID)
		if err != nil {
			return fmt.Errorf("approve request: %w", err)
		}

		if req.BookID != "" {
			book, err := tx.Books().Get(ctx, req.BookID)
			switch {
			case err == nil:
				remaining := max(book.RemainingUnusedTests-1, 0)
				if err := tx.Books().Update(ctx, book.ID, store.Fields{"remaining_unused_tests": remaining}); err != nil {
					return fmt.Errorf("adjust inventory: %w", err)
				}
				h.logger.Info("inventory adjusted", "book_id", book.ID, "remaining_unused_tests", remaining)
			case errors.Is(err, store.ErrNotFound):
				h.logger.Warn("request references a missing book", "request_id", req.ID, "book_id", req.BookID)
			default:
				return fmt.Errorf("adjust inventory: %w", err)
			}
		}

		fields := store.Fields{"status": string(models.StatusApproved)}
		if req.ReturnDate == "" {
			fields["return_date"] = tx.Now().Add(h.loanPeriod).Format(models.DateLayout)
		}
		if err := tx.Requests().Update(ctx, req.ID, fields); err != nil {
			return fmt.Errorf("approve request: %w", err)
		}
		return nil
	})
}

// RejectRequest marks the request rejected.
func (h *Helper) RejectRequest(ctx context.Context, requestID string) error {
	err := h.store.Requests().Update(ctx, requestID, store.Fields{"status": string(models.StatusRejected)})
	if err != nil {
		return fmt.Errorf("reject request: %w", err)
	}
	return nil
}
