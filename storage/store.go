package storage

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// ErrNotFound is returned by Get for keys that hold no value.
var ErrNotFound = apperrors.ErrNotFound

// Store defines a small key/value persistence contract. Volatile stores hold
// state for the life of the process; durable stores survive restarts.
type Store interface {
	// Get returns the value for key or ErrNotFound
	Get(key string) ([]byte, error)

	// Set creates or replaces the value for key
	Set(key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error

	// Close releases any resources held by the store
	Close() error
}

// Watcher is implemented by durable stores that can observe changes made by
// other processes sharing the same backing storage.
type Watcher interface {
	// Watch calls onChange with the key of every value that was created,
	// modified or removed outside this store instance, until ctx is done.
	Watch(ctx context.Context, onChange func(key string)) error
}

// GetJSON reads key and decodes it into v.
func GetJSON(s Store, key string, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: key %q: %v", apperrors.ErrInvalidValue, key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("[storage SetJSON] key %q: %w", key, err)
	}
	return s.Set(key, data)
}
