package repositories

import (
	"context"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
)

// MaxAdminActions is the length of the admin log; older entries are dropped first.
const MaxAdminActions = 1000

// AdminActionRepository defines the interface for the append-only admin log
type AdminActionRepository interface {
	Append(ctx context.Context, action models.AdminAction) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]models.AdminAction, error)
}

type storeAdminActionRepository struct {
	actions *storage.Collection[models.AdminAction]
	max     int
}

func NewStoreAdminActionRepository(store *storage.Store) AdminActionRepository {
	return &storeAdminActionRepository{
		actions: storage.NewCollection[models.AdminAction](store, storage.KeyAdminActions),
		max:     MaxAdminActions,
	}
}

func (r *storeAdminActionRepository) Append(ctx context.Context, action models.AdminAction) error {
	return r.actions.Update(ctx, func(items []models.AdminAction) ([]models.AdminAction, error) {
		items = append(items, action)
		if len(items) > r.max {
			items = items[len(items)-r.max:]
		}
		return items, nil
	})
}

func (r *storeAdminActionRepository) Recent(ctx context.Context, limit int) ([]models.AdminAction, error) {
	items, err := r.actions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([]models.AdminAction, 0, limit)
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, items[i])
	}
	return out, nil
}
