package repositories

import (
	"context"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
)

// MessageRepository defines the interface for delivered chat messages
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	GetConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error)
	UpdateMessage(ctx context.Context, id string, fn func(*models.Message)) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

type storeMessageRepository struct {
	messages *storage.Collection[models.Message]
}

// NewStoreMessageRepository keeps messages under the messages key
func NewStoreMessageRepository(store *storage.Store) MessageRepository {
	return &storeMessageRepository{messages: storage.NewCollection[models.Message](store, storage.KeyMessages)}
}

func (r *storeMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.messages.Update(ctx, func(items []models.Message) ([]models.Message, error) {
		return append(items, *msg), nil
	})
}

func (r *storeMessageRepository) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	items, err := r.messages.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetConversation returns up to limit of the latest messages between two users, oldest first
func (r *storeMessageRepository) GetConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	items, err := r.messages.Load(ctx)
	if err != nil {
		return nil, err
	}
	convID := models.ConversationID(userA, userB)
	out := make([]models.Message, 0)
	for _, m := range items {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *storeMessageRepository) UpdateMessage(ctx context.Context, id string, fn func(*models.Message)) (*models.Message, error) {
	var result *models.Message
	err := r.messages.Update(ctx, func(items []models.Message) ([]models.Message, error) {
		for i := range items {
			if items[i].ID == id {
				fn(&items[i])
				m := items[i]
				result = &m
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
	return result, err
}

func (r *storeMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	return r.messages.Update(ctx, func(items []models.Message) ([]models.Message, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}
