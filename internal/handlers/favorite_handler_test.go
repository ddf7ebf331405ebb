package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteHandler(t *testing.T) {
	e, api := newEcho()
	store := newMemoryStore()
	notifications := repositories.NewStoreNotificationRepository(store)
	NewFavoriteHandler(repositories.NewStoreFavoriteRepository(store), notifications, nil).RegisterFavoriteRoutes(api)

	var res struct {
		Created bool `json:"created"`
	}
	rec := do(t, e, clientA, http.MethodPost, "/api/talent/"+talentB.id+"/favorite", nil)
	expectStatus(t, rec, http.StatusOK)
	data(t, rec, &res)
	assert.True(t, res.Created)

	rec = do(t, e, clientA, http.MethodPost, "/api/talent/"+talentB.id+"/favorite", nil)
	data(t, rec, &res)
	assert.False(t, res.Created)

	rec = do(t, e, clientA, http.MethodPost, "/api/talent/"+talentB.id+"/shortlist", echo.Map{"projectId": "proj-7"})
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, do(t, e, clientA, http.MethodPost, "/api/talent/"+talentB.id+"/shortlist", nil), http.StatusBadRequest)
	expectStatus(t, do(t, e, talentB, http.MethodPost, "/api/talent/5/favorite", nil), http.StatusForbidden)

	var shortlist struct {
		Shortlist []models.Shortlist `json:"shortlist"`
	}
	rec = do(t, e, clientA, http.MethodGet, "/api/shortlists?projectId=proj-7", nil)
	data(t, rec, &shortlist)
	require.Len(t, shortlist.Shortlist, 1)
	assert.Equal(t, talentB.id, shortlist.Shortlist[0].TalentID)

	// one notification per new relation, none for the repeat favorite
	items, total, err := notifications.GetByTalentID(context.Background(), talentB.id, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	byType := map[models.NotificationType]models.TalentNotification{}
	for _, n := range items {
		byType[n.Type] = n
	}
	assert.Equal(t, "proj-7", byType[models.NotificationShortlist].ProjectID)
	assert.Equal(t, clientA.name, byType[models.NotificationFavorite].ClientName)
}
