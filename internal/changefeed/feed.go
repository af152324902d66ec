// Package changefeed carries committed document mutations to live
// subscribers and background triggers.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

var ErrClosed = errors.New("change feed closed")

// Change is one committed mutation. Before is empty for creates, After for deletes.
type Change struct {
	Collection string          `json:"collection"`
	DocumentID string          `json:"document_id"`
	Op         Op              `json:"op"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	At         time.Time       `json:"at"`
}

// DecodeBefore unmarshals the pre-image into v and reports whether one was present.
func (c Change) DecodeBefore(v any) (bool, error) {
	return decodeImage(c.Before, v)
}

// DecodeAfter unmarshals the post-image into v and reports whether one was present.
func (c Change) DecodeAfter(v any) (bool, error) {
	return decodeImage(c.After, v)
}

func decodeImage(raw json.RawMessage, v any) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

type Publisher interface {
	Publish(ctx context.Context, changes ...Change) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Feed is both ends of a change transport.
type Feed interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription delivers changes for one collection on C until Close.
type Subscription struct {
	C <-chan Change

	once   sync.Once
	cancel func()
}

func newSubscription(c <-chan Change, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

// Close releases the registration. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
