package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/moderation"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminAPI(t *testing.T) (*echo.Echo, repositories.MessageRepository, *storage.Store) {
	t.Helper()
	e, api := newEcho()
	store := newMemoryStore()
	messages := repositories.NewStoreMessageRepository(store)
	mod := moderation.NewService(moderation.NewDetector(moderation.DefaultRules()), messages, repositories.NewStoreAdminActionRepository(store), nil)
	NewAdminHandler(mod, store).RegisterAdminRoutes(api.Group("/admin", middleware.RequireRole(models.RoleAdmin)))

	require.NoError(t, messages.CreateMessage(context.Background(), &models.Message{
		ID:             "m1",
		ConversationID: models.ConversationID(clientA.id, talentB.id),
		FromID:         clientA.id,
		ToID:           talentB.id,
		Content:        "let's move this to another app",
		CreatedAt:      time.Now(),
	}))
	return e, messages, store
}

func TestAdminHandler_Moderation(t *testing.T) {
	e, messages, _ := newAdminAPI(t)

	expectStatus(t, do(t, e, clientA, http.MethodPost, "/api/admin/messages/m1/flag", echo.Map{"reason": "off platform"}), http.StatusForbidden)

	rec := do(t, e, admin, http.MethodPost, "/api/admin/messages/m1/flag", echo.Map{"reason": "off platform"})
	expectStatus(t, rec, http.StatusOK)
	var msg models.Message
	data(t, rec, &msg)
	assert.True(t, msg.Flagged)
	assert.Equal(t, admin.id, msg.FlaggedBy)

	expectStatus(t, do(t, e, admin, http.MethodPost, "/api/admin/messages/nope/flag", echo.Map{"reason": "spam"}), http.StatusNotFound)

	expectStatus(t, do(t, e, admin, http.MethodDelete, "/api/admin/messages/m1", nil), http.StatusNoContent)
	_, err := messages.GetMessageByID(context.Background(), "m1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	expectStatus(t, do(t, e, admin, http.MethodDelete, "/api/admin/messages/m1", nil), http.StatusNotFound)

	var log struct {
		Actions []models.AdminAction `json:"actions"`
	}
	rec = do(t, e, admin, http.MethodGet, "/api/admin/actions", nil)
	expectStatus(t, rec, http.StatusOK)
	data(t, rec, &log)
	require.Len(t, log.Actions, 2)
	assert.Equal(t, models.ActionDeleteMessage, log.Actions[0].Action)
	assert.Equal(t, models.ActionFlagMessage, log.Actions[1].Action)
}

func TestAdminHandler_Storage(t *testing.T) {
	e, messages, store := newAdminAPI(t)
	require.NoError(t, store.Set(context.Background(), "draft_cache", []byte(`{"x":1}`)))

	var usage struct {
		UsedBytes int64    `json:"usedBytes"`
		Keys      []string `json:"keys"`
	}
	rec := do(t, e, admin, http.MethodGet, "/api/admin/storage", nil)
	expectStatus(t, rec, http.StatusOK)
	data(t, rec, &usage)
	assert.Positive(t, usage.UsedBytes)
	assert.Contains(t, usage.Keys, "draft_cache")

	expectStatus(t, do(t, e, admin, http.MethodPost, "/api/admin/storage/cleanup", echo.Map{"level": "everything"}), http.StatusBadRequest)

	rec = do(t, e, admin, http.MethodPost, "/api/admin/storage/cleanup", echo.Map{"level": storage.CleanupEmergency})
	expectStatus(t, rec, http.StatusOK)

	_, err := store.Get(context.Background(), "draft_cache")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	conv, err := messages.GetConversation(context.Background(), clientA.id, talentB.id, 0)
	require.NoError(t, err)
	assert.Empty(t, conv)
}
