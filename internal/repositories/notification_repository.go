package repositories

import (
	"context"
	"sort"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
)

// NotificationRepository defines the interface for talent notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.TalentNotification) error
	GetByTalentID(ctx context.Context, talentID string, page, limit int) ([]models.TalentNotification, int, error)
	GetUnreadCount(ctx context.Context, talentID string) (int, error)
	// MarkAsRead flips the listed notifications of talentID to read and returns how many changed.
	MarkAsRead(ctx context.Context, talentID string, ids []string) (int, error)
	MarkAllAsRead(ctx context.Context, talentID string) (int, error)
}

type storeNotificationRepository struct {
	notifications *storage.Collection[models.TalentNotification]
}

func NewStoreNotificationRepository(store *storage.Store) NotificationRepository {
	return &storeNotificationRepository{notifications: storage.NewCollection[models.TalentNotification](store, storage.KeyTalentNotifications)}
}

func (r *storeNotificationRepository) CreateNotification(ctx context.Context, notification *models.TalentNotification) error {
	return r.notifications.Update(ctx, func(items []models.TalentNotification) ([]models.TalentNotification, error) {
		return append(items, *notification), nil
	})
}

// GetByTalentID returns a page of the talent's notifications, newest first, and the total count
func (r *storeNotificationRepository) GetByTalentID(ctx context.Context, talentID string, page, limit int) ([]models.TalentNotification, int, error) {
	items, err := r.notifications.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	var mine []models.TalentNotification
	for _, n := range items {
		if n.TalentID == talentID {
			mine = append(mine, n)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })

	total := len(mine)
	offset := (page - 1) * limit
	if offset >= total {
		return []models.TalentNotification{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (r *storeNotificationRepository) GetUnreadCount(ctx context.Context, talentID string) (int, error) {
	items, err := r.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range items {
		if n.TalentID == talentID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *storeNotificationRepository) MarkAsRead(ctx context.Context, talentID string, ids []string) (int, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return r.markRead(ctx, talentID, func(n models.TalentNotification) bool {
		_, ok := wanted[n.ID]
		return ok
	})
}

func (r *storeNotificationRepository) MarkAllAsRead(ctx context.Context, talentID string) (int, error) {
	return r.markRead(ctx, talentID, func(models.TalentNotification) bool { return true })
}

func (r *storeNotificationRepository) markRead(ctx context.Context, talentID string, match func(models.TalentNotification) bool) (int, error) {
	changed := 0
	err := r.notifications.Update(ctx, func(items []models.TalentNotification) ([]models.TalentNotification, error) {
		for i := range items {
			if items[i].TalentID != talentID || items[i].Read || !match(items[i]) {
				continue
			}
			items[i].Read = true
			changed++
		}
		return items, nil
	})
	return changed, err
}
