// Package storage provides a key/value store with a byte quota and tiered
// cleanup, used as the persistence layer for marketplace collections.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key is absent from the backend.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned when a write would break the item or total ceiling.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrWriteDropped is returned by collections when SafeSet gave up on a write.
	ErrWriteDropped = errors.New("storage: write dropped after cleanup")
)

// Backend is the raw key/value engine underneath a Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	// Usage returns the bytes held, counted as len(key)+len(value) per entry.
	Usage(ctx context.Context) (int64, error)
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
