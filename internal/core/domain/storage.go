package domain

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("storage key not found")
)

// KeyValueStore is the Storage Provider that holds the serialized blobs of
// one installation. Writes are full overwrites; the last writer wins.
type KeyValueStore interface {
	// Get returns the stored value or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set creates or replaces the value under key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
