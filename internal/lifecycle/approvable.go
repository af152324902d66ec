package lifecycle

import (
	"fmt"
	"time"

	"bookshare/internal/models"
)

type Kind string

const (
	KindRequest  Kind = "request"
	KindDonation Kind = "donation"
)

// Ref points at an approvable entity: either a RequestRef or a DonationRef.
type Ref interface {
	Kind() Kind
	ID() string
	sealed()
}

type RequestRef string

func (r RequestRef) Kind() Kind { return KindRequest }
func (r RequestRef) ID() string { return string(r) }
func (RequestRef) sealed()      {}

type DonationRef string

func (d DonationRef) Kind() Kind { return KindDonation }
func (d DonationRef) ID() string { return string(d) }
func (DonationRef) sealed()      {}

// ParseRef builds a Ref from a kind name ("request" or "donation") and id.
func ParseRef(kind, id string) (Ref, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidInput)
	}
	switch Kind(kind) {
	case KindRequest:
		return RequestRef(id), nil
	case KindDonation:
		return DonationRef(id), nil
	}
	return nil, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, kind)
}

// Schedule is the hand-off arrangement a leader attaches on approval.
type Schedule struct {
	MeetingDate         string // YYYY-MM-DD
	MeetingTime         string // HH:MM
	MeetingLocationType string // in-school | outside-school
	ReturnDate          string // YYYY-MM-DD
}

func (s Schedule) validate() error {
	if s.ReturnDate == "" {
		return fmt.Errorf("%w: return date is required", ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, s.ReturnDate); err != nil {
		return fmt.Errorf("%w: return date %q is not YYYY-MM-DD", ErrInvalidInput, s.ReturnDate)
	}
	if _, err := time.Parse(models.DateLayout, s.MeetingDate); err != nil {
		return fmt.Errorf("%w: meeting date %q is not YYYY-MM-DD", ErrInvalidInput, s.MeetingDate)
	}
	if _, err := time.Parse(models.TimeLayout, s.MeetingTime); err != nil {
		return fmt.Errorf("%w: meeting time %q is not HH:MM", ErrInvalidInput, s.MeetingTime)
	}
	switch s.MeetingLocationType {
	case models.LocationInSchool, models.LocationOutsideSchool:
	default:
		return fmt.Errorf("%w: meeting location type %q", ErrInvalidInput, s.MeetingLocationType)
	}
	return nil
}
