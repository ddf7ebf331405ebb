package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, repositories.MessageRepository) {
	t.Helper()
	store := storage.NewStore(storage.NewMemoryBackend(), storage.DefaultQuota(), storage.DefaultCleanupPolicy(), nil)
	messages := repositories.NewStoreMessageRepository(store)
	actions := repositories.NewStoreAdminActionRepository(store)
	return NewService(NewDetector(DefaultRules()), messages, actions, nil), messages
}

func storeMessage(t *testing.T, repo repositories.MessageRepository, id, content string) {
	t.Helper()
	require.NoError(t, repo.CreateMessage(context.Background(), &models.Message{
		ID:             id,
		ConversationID: models.ConversationID("c1", "t1"),
		FromID:         "c1",
		ToID:           "t1",
		Content:        content,
		CreatedAt:      time.Now(),
	}))
}

func TestService_ScreenFlagsOffPlatformContact(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	msg := &models.Message{ID: "m1", Content: "reach me at alice@example.com"}
	assert.True(t, s.Screen(ctx, msg))
	assert.True(t, msg.Flagged)
	assert.Equal(t, "auto: email", msg.FlagReason)
	assert.Equal(t, SystemAdminID, msg.FlaggedBy)
	assert.NotNil(t, msg.FlaggedAt)

	clean := &models.Message{ID: "m2", Content: "Great, thanks!"}
	assert.False(t, s.Screen(ctx, clean))
	assert.False(t, clean.Flagged)

	actions, err := s.Actions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "m1", actions[0].TargetID)
}

func TestService_FlagAndDelete(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t)
	storeMessage(t, repo, "m1", "hello")

	msg, err := s.Flag(ctx, "m1", "spam", "admin-7")
	require.NoError(t, err)
	assert.True(t, msg.Flagged)
	assert.Equal(t, "spam", msg.FlagReason)
	assert.Equal(t, "admin-7", msg.FlaggedBy)

	stored, err := repo.GetMessageByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, stored.Flagged)

	require.NoError(t, s.Delete(ctx, "m1", "admin-7"))
	_, err = repo.GetMessageByID(ctx, "m1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	actions, err := s.Actions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, models.ActionDeleteMessage, actions[0].Action)
	assert.Equal(t, models.ActionFlagMessage, actions[1].Action)
}

func TestService_UnknownMessage(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	_, err := s.Flag(ctx, "nope", "spam", "admin")
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope", "admin"), ErrMessageNotFound)

	actions, err := s.Actions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
