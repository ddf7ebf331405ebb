package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anonto42/voxmarket/backend/internal/metrics"
	"go.uber.org/zap"
)

// Cleanup tiers, in the order SafeSet escalates through them.
const (
	CleanupAggressive = "aggressive"
	CleanupEmergency  = "emergency"
)

// Store is a quota-bounded key/value store over a Backend.
// A Store is safe for concurrent use; callers needing read-modify-write
// atomicity on a key go through Collection.
type Store struct {
	backend Backend
	quota   Quota
	policy  CleanupPolicy
	logger  *zap.Logger

	locks     sync.Map   // key -> *sync.Mutex
	writeMu   sync.Mutex // serializes the quota check with the write
	cleanupMu sync.Mutex
}

// NewStore creates a Store. A nil logger disables logging.
func NewStore(backend Backend, quota Quota, policy CleanupPolicy, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		quota:   quota,
		policy:  policy,
		logger:  logger.Named("store"),
	}
}

// Quota returns the configured ceilings.
func (s *Store) Quota() Quota { return s.quota }

// Get returns the raw value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Keys lists every stored key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.backend.Keys(ctx)
}

// Usage returns the bytes currently held.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	return s.backend.Usage(ctx)
}

// Set writes value under key, or fails with ErrQuotaExceeded when the value
// breaks the per-item ceiling or the store would exceed its total ceiling.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s.quota.MaxItemBytes > 0 && int64(len(value)) > s.quota.MaxItemBytes {
		return fmt.Errorf("%w: %s is %d bytes, item limit %d", ErrQuotaExceeded, key, len(value), s.quota.MaxItemBytes)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.quota.MaxTotalBytes > 0 {
		used, err := s.backend.Usage(ctx)
		if err != nil {
			return fmt.Errorf("reading usage: %w", err)
		}
		old, err := s.backend.Get(ctx, key)
		switch {
		case err == nil:
			used -= entrySize(key, old)
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("reading %s: %w", key, err)
		}
		if used+entrySize(key, value) > s.quota.MaxTotalBytes {
			return fmt.Errorf("%w: %s needs %d bytes, %d of %d in use", ErrQuotaExceeded, key, entrySize(key, value), used, s.quota.MaxTotalBytes)
		}
	}

	if err := s.backend.Put(ctx, key, value); err != nil {
		return err
	}
	if used, err := s.backend.Usage(ctx); err == nil {
		metrics.SetStoreUsage(used)
	}
	return nil
}

// SafeSet writes value, escalating through the cleanup tiers when the store
// is full. It reports whether the value was finally written and never
// returns an error; failures are logged.
func (s *Store) SafeSet(ctx context.Context, key string, value []byte) bool {
	err := s.Set(ctx, key, value)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		s.logger.Error("write failed", zap.String("key", key), zap.Error(err))
		return false
	}

	s.logger.Warn("quota exceeded, running aggressive cleanup", zap.String("key", key), zap.Int("bytes", len(value)))
	if cerr := s.AggressiveCleanup(ctx); cerr != nil {
		s.logger.Error("aggressive cleanup failed", zap.Error(cerr))
	}
	if err = s.Set(ctx, key, value); err == nil {
		return true
	}

	s.logger.Warn("quota still exceeded, running emergency cleanup", zap.String("key", key))
	if cerr := s.EmergencyCleanup(ctx); cerr != nil {
		s.logger.Error("emergency cleanup failed", zap.Error(cerr))
	}
	if err = s.Set(ctx, key, value); err == nil {
		return true
	}

	metrics.RecordDroppedWrite()
	s.logger.Error("write dropped after emergency cleanup", zap.String("key", key), zap.Int("bytes", len(value)), zap.Error(err))
	return false
}

// AggressiveCleanup truncates every capped collection to its most recent entries.
func (s *Store) AggressiveCleanup(ctx context.Context) error {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	metrics.RecordStoreCleanup(CleanupAggressive)

	var errs []error
	for key, keep := range s.policy.Caps {
		raw, err := s.backend.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", key, err))
			continue
		}

		items, version, err := decodeRawItems(raw)
		if err != nil {
			s.logger.Warn("skipping non-collection key", zap.String("key", key), zap.Error(err))
			continue
		}
		if len(items) <= keep {
			continue
		}

		trimmed, err := encodeRawItems(items[len(items)-keep:], version)
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding %s: %w", key, err))
			continue
		}
		if err := s.backend.Put(ctx, key, trimmed); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", key, err))
			continue
		}
		s.logger.Info("collection truncated", zap.String("key", key), zap.Int("from", len(items)), zap.Int("to", keep))
	}
	return errors.Join(errs...)
}

// EmergencyCleanup deletes every key outside the allow-list and resets the
// core collections to empty arrays.
func (s *Store) EmergencyCleanup(ctx context.Context) error {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	metrics.RecordStoreCleanup(CleanupEmergency)

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}

	var errs []error
	removed := 0
	for _, key := range keys {
		if s.policy.allowed(key) {
			continue
		}
		if err := s.backend.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("deleting %s: %w", key, err))
			continue
		}
		removed++
	}

	empty, err := encodeRawItems(nil, schemaVersion)
	if err != nil {
		return err
	}
	for _, key := range s.policy.CoreCollections {
		if err := s.backend.Put(ctx, key, empty); err != nil {
			errs = append(errs, fmt.Errorf("resetting %s: %w", key, err))
		}
	}

	s.logger.Warn("emergency cleanup complete", zap.Int("removed", removed), zap.Int("reset", len(s.policy.CoreCollections)))
	return errors.Join(errs...)
}

func (s *Store) lockKey(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// decodeRawItems splits a stored collection into its entries without
// decoding them, returning the schema version it was written with.
func decodeRawItems(raw []byte) ([]json.RawMessage, int, error) {
	data, version, err := unwrap(raw)
	if err != nil {
		return nil, 0, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, 0, fmt.Errorf("not an array: %w", err)
	}
	return items, version, nil
}

func encodeRawItems(items []json.RawMessage, version int) ([]byte, error) {
	if items == nil {
		items = []json.RawMessage{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	if version == legacyVersion {
		return data, nil
	}
	return wrap(data)
}
