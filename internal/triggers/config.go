// Package triggers runs the background procedures that write
// notifications: the approval due-date stamp and the daily reminder sweep.
package triggers

import (
	"log/slog"
	"time"

	"bookshare/internal/metrics"
)

const (
	NameDueDate = "on_approval_set_due_date"
	NameDaily   = "daily_due_reminders"

	DefaultLoanPeriod = 14 * 24 * time.Hour

	myRequestsLink = "/my-requests"
	day            = 24 * time.Hour
)

// Config is shared by every trigger. Zero fields take defaults.
type Config struct {
	LoanPeriod time.Duration
	Location   *time.Location // zone used to print due dates
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

func (c Config) withDefaults() Config {
	if c.LoanPeriod <= 0 {
		c.LoanPeriod = DefaultLoanPeriod
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
