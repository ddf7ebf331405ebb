package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	// legacyVersion marks a bare JSON array written before envelopes existed.
	legacyVersion = 0
	schemaVersion = 1
)

// ErrUnsupportedVersion is returned when a value was written by a newer schema.
var ErrUnsupportedVersion = errors.New("storage: unsupported schema version")

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

func wrap(data []byte) ([]byte, error) {
	return json.Marshal(envelope{V: schemaVersion, Data: data})
}

func unwrap(raw []byte) ([]byte, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed, legacyVersion, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.V < 1 || env.V > schemaVersion {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.V)
	}
	return env.Data, env.V, nil
}

// Validator is implemented by records that can check themselves after decoding.
type Validator interface {
	Validate() error
}

// Collection is a typed, append-ordered JSON array stored under one key.
// The most recent entries are at the end.
type Collection[T any] struct {
	store *Store
	key   string
}

func NewCollection[T any](store *Store, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

// Key returns the storage key backing the collection.
func (c *Collection[T]) Key() string { return c.key }

// Load returns every valid entry. A missing key is an empty collection.
// Entries failing validation are skipped and logged.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := c.store.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", c.key, err)
	}

	items, _, err := decodeRawItems(raw)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", c.key, err)
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			c.store.logger.Warn("skipping undecodable entry", zap.String("key", c.key), zap.Int("index", i), zap.Error(err))
			continue
		}
		if val, ok := any(&v).(Validator); ok {
			if err := val.Validate(); err != nil {
				c.store.logger.Warn("skipping invalid entry", zap.String("key", c.key), zap.Int("index", i), zap.Error(err))
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Save replaces the collection through SafeSet.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.key, err)
	}
	raw, err := wrap(data)
	if err != nil {
		return err
	}
	if !c.store.SafeSet(ctx, c.key, raw) {
		return fmt.Errorf("%w: %s", ErrWriteDropped, c.key)
	}
	return nil
}

// Update runs a read-modify-write cycle while holding the collection's lock.
// Returning an error from fn aborts the write.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	mu := c.store.lockKey(c.key)
	mu.Lock()
	defer mu.Unlock()

	items, err := c.Load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return c.Save(ctx, updated)
}
