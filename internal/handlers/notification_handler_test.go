package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHandler(t *testing.T) {
	e, api := newEcho()
	repo := repositories.NewStoreNotificationRepository(newMemoryStore())
	NewNotificationHandler(repo).RegisterNotificationRoutes(api)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateNotification(context.Background(), &models.TalentNotification{
			ID:        fmt.Sprintf("n%d", i),
			Type:      models.NotificationShortlist,
			TalentID:  talentB.id,
			ClientID:  clientA.id,
			ProjectID: "proj-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	var list struct {
		Notifications []models.TalentNotification `json:"notifications"`
	}
	rec := do(t, e, talentB, http.MethodGet, "/api/notifications?limit=2", nil)
	expectStatus(t, rec, http.StatusOK)
	data(t, rec, &list)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "n2", list.Notifications[0].ID)

	var count struct {
		Count int `json:"count"`
	}
	rec = do(t, e, talentB, http.MethodGet, "/api/notifications/unread-count", nil)
	data(t, rec, &count)
	assert.Equal(t, 3, count.Count)

	var marked struct {
		Updated int `json:"updated"`
	}
	rec = do(t, e, talentB, http.MethodPut, "/api/notifications/read", echo.Map{"ids": []string{"n0", "n1"}})
	expectStatus(t, rec, http.StatusOK)
	data(t, rec, &marked)
	assert.Equal(t, 2, marked.Updated)

	rec = do(t, e, talentB, http.MethodPut, "/api/notifications/read", echo.Map{"ids": []string{"n0", "n1"}})
	data(t, rec, &marked)
	assert.Equal(t, 0, marked.Updated)

	rec = do(t, e, talentB, http.MethodGet, "/api/notifications/unread-count", nil)
	data(t, rec, &count)
	assert.Equal(t, 1, count.Count)

	expectStatus(t, do(t, e, talentB, http.MethodPut, "/api/notifications/read", echo.Map{"ids": []string{}}), http.StatusBadRequest)
	expectStatus(t, do(t, e, anon, http.MethodGet, "/api/notifications", nil), http.StatusUnauthorized)
}
