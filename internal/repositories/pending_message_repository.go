package repositories

import (
	"context"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
)

// PendingMessageRepository defines the interface for the delivery fallback queue
type PendingMessageRepository interface {
	Enqueue(ctx context.Context, msg models.PendingMessage) error
	List(ctx context.Context) ([]models.PendingMessage, error)
	ListBySender(ctx context.Context, fromID string) ([]models.PendingMessage, error)
	Remove(ctx context.Context, id string) error
	// RecordFailure bumps the retry count of a message, never past MaxDeliveryRetries.
	RecordFailure(ctx context.Context, id string, at time.Time, reason string) (*models.PendingMessage, error)
}

type storePendingMessageRepository struct {
	pending *storage.Collection[models.PendingMessage]
}

// NewStorePendingMessageRepository keeps the queue under the pendingMessages key
func NewStorePendingMessageRepository(store *storage.Store) PendingMessageRepository {
	return &storePendingMessageRepository{pending: storage.NewCollection[models.PendingMessage](store, storage.KeyPendingMessages)}
}

func (r *storePendingMessageRepository) Enqueue(ctx context.Context, msg models.PendingMessage) error {
	return r.pending.Update(ctx, func(items []models.PendingMessage) ([]models.PendingMessage, error) {
		return append(items, msg), nil
	})
}

func (r *storePendingMessageRepository) List(ctx context.Context) ([]models.PendingMessage, error) {
	return r.pending.Load(ctx)
}

func (r *storePendingMessageRepository) ListBySender(ctx context.Context, fromID string) ([]models.PendingMessage, error) {
	items, err := r.pending.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PendingMessage, 0)
	for _, m := range items {
		if m.FromID == fromID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *storePendingMessageRepository) Remove(ctx context.Context, id string) error {
	return r.pending.Update(ctx, func(items []models.PendingMessage) ([]models.PendingMessage, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *storePendingMessageRepository) RecordFailure(ctx context.Context, id string, at time.Time, reason string) (*models.PendingMessage, error) {
	var result *models.PendingMessage
	err := r.pending.Update(ctx, func(items []models.PendingMessage) ([]models.PendingMessage, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].RetryCount < models.MaxDeliveryRetries {
				items[i].RetryCount++
			}
			attempt := at
			items[i].LastAttempt = &attempt
			items[i].LastError = reason
			m := items[i]
			result = &m
			return items, nil
		}
		return nil, ErrNotFound
	})
	return result, err
}
