// Package prefs defines the local key-value preferences store the
// application reads its persisted settings from.
package prefs

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a key has never been set.
var ErrNotFound = errors.New("preference not found")

// Reader reads string preferences by key.
type Reader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Store is a string-keyed preferences store.
type Store interface {
	Reader
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
