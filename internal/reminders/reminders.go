// Package reminders derives student-facing alerts from request snapshots.
// Nothing here touches the store; the same inputs always give the same output.
package reminders

import (
	"fmt"
	"time"

	"bookshare/internal/models"
)

type Urgency string

const (
	UrgencyNormal  Urgency = "normal"
	UrgencyWarning Urgency = "warning"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyOverdue Urgency = "overdue"
)

// Reminders are shown for returns due within this many days, or overdue by
// at most MaxOverdueDays.
const (
	MaxDaysAhead   = 10
	MaxOverdueDays = 30
)

const day = 24 * time.Hour

type Reminder struct {
	RequestID  string  `json:"request_id"`
	BookTitle  string  `json:"book_title"`
	Message    string  `json:"message"`
	Urgency    Urgency `json:"urgency"`
	ReturnDate string  `json:"return_date"`
	DaysLeft   int     `json:"days_left"`
}

// Compute returns reminders for approved requests with a return date, in
// input order. Return dates are calendar days at midnight in now's location.
func Compute(requests []models.Request, now time.Time) []Reminder {
	out := []Reminder{}
	for _, req := range requests {
		if req.Status != models.StatusApproved || req.ReturnDate == "" {
			continue
		}
		due, err := time.ParseInLocation(models.DateLayout, req.ReturnDate, now.Location())
		if err != nil {
			continue
		}

		days := DaysUntil(due, now)
		if days > MaxDaysAhead || days < -MaxOverdueDays {
			continue
		}
		msg, urgency := classify(req.BookTitle, days)
		out = append(out, Reminder{
			RequestID:  req.ID,
			BookTitle:  req.BookTitle,
			Message:    msg,
			Urgency:    urgency,
			ReturnDate: req.ReturnDate,
			DaysLeft:   days,
		})
	}
	return out
}

// DaysUntil is ceil((due - now) / 24h).
func DaysUntil(due, now time.Time) int {
	d := due.Sub(now)
	days := int(d / day)
	if d%day > 0 {
		days++
	}
	return days
}

func classify(title string, days int) (string, Urgency) {
	switch {
	case days > 0:
		msg := fmt.Sprintf("%q due in %d %s", title, days, plural(days, "day", "days"))
		switch {
		case days <= 1:
			return msg, UrgencyUrgent
		case days <= 5:
			return msg, UrgencyWarning
		}
		return msg, UrgencyNormal
	case days == 0:
		return fmt.Sprintf("%q is due TODAY!", title), UrgencyUrgent
	default:
		late := -days
		return fmt.Sprintf("%q is %d %s overdue!", title, late, plural(late, "day", "days")), UrgencyOverdue
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Pickup is an approved request waiting to be handed over.
type Pickup struct {
	RequestID           string `json:"request_id"`
	BookTitle           string `json:"book_title"`
	MeetingDate         string `json:"meeting_date"`
	MeetingTime         string `json:"meeting_time"`
	MeetingLocationType string `json:"meeting_location_type"`
	ReturnDate          string `json:"return_date"`
	Message             string `json:"message"`
}

// Pickups lists approved requests that carry a meeting date, in input order.
func Pickups(requests []models.Request) []Pickup {
	out := []Pickup{}
	for _, req := range requests {
		if req.Status != models.StatusApproved || req.MeetingDate == "" {
			continue
		}
		msg := fmt.Sprintf("%q is ready for pickup on %s", req.BookTitle, req.MeetingDate)
		if req.MeetingTime != "" {
			msg += " at " + req.MeetingTime
		}
		if req.MeetingLocationType != "" {
			msg += " (" + req.MeetingLocationType + ")"
		}
		out = append(out, Pickup{
			RequestID:           req.ID,
			BookTitle:           req.BookTitle,
			MeetingDate:         req.MeetingDate,
			MeetingTime:         req.MeetingTime,
			MeetingLocationType: req.MeetingLocationType,
			ReturnDate:          req.ReturnDate,
			Message:             msg,
		})
	}
	return out
}
