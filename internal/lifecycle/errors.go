package lifecycle

import (
	"errors"

	"bookshare/internal/store"
)

var (
	ErrNotFound         = store.ErrNotFound
	ErrStoreUnavailable = store.ErrUnavailable
	ErrInvalidState     = errors.New("invalid state transition")
	ErrUnauthorized     = errors.New("action not permitted")
	ErrInvalidInput     = errors.New("invalid input")
)
