// Package tokenstore persists the access token, refresh token and cached user
// between runs. Reads and writes are best-effort: a failing backend degrades
// to "no session" and the user logs in again.
package tokenstore

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotFound is returned by a Backend when the key is absent
var ErrNotFound = errors.New("tokenstore: key not found")

// Backend is a raw key-value persistence layer
type Backend interface {
	// Get returns the stored value or ErrNotFound
	Get(ctx context.Context, key string) (string, error)
	// Set overwrites the value for key
	Set(ctx context.Context, key, value string) error
	// Del removes keys; absent keys are not an error
	Del(ctx context.Context, keys ...string) error
	// Close releases backend resources
	Close() error
}

// Store wraps a Backend and swallows its failures after logging them
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// New creates a best-effort store over backend
func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger.Named("tokenstore")}
}

// Set overwrites key. Failures are logged, never returned.
func (s *Store) Set(ctx context.Context, key, value string) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Warn("failed to persist key", zap.String("key", key), zap.Error(err))
	}
}

// Get returns the value for key and whether it was present
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("failed to read key", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

// Clear removes keys. Failures are logged, never returned.
func (s *Store) Clear(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.backend.Del(ctx, keys...); err != nil {
		s.logger.Warn("failed to clear keys", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Close closes the underlying backend
func (s *Store) Close() error {
	return s.backend.Close()
}
