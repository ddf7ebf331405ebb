package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FavoriteHandler handles client favorites and project shortlists
type FavoriteHandler struct {
	favoriteRepository     repositories.FavoriteRepository
	notificationRepository repositories.NotificationRepository
	logger                 *zap.Logger
}

// NewFavoriteHandler creates a new FavoriteHandler
func NewFavoriteHandler(favRepo repositories.FavoriteRepository, notifRepo repositories.NotificationRepository, logger *zap.Logger) *FavoriteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteHandler{
		favoriteRepository:     favRepo,
		notificationRepository: notifRepo,
		logger:                 logger,
	}
}

// RegisterFavoriteRoutes registers favorite and shortlist routes
func (h *FavoriteHandler) RegisterFavoriteRoutes(g *echo.Group) {
	g.POST("/talent/:id/favorite", h.Favorite)
	g.POST("/talent/:id/shortlist", h.Shortlist)
	g.GET("/favorites", h.ListFavorites)
	g.GET("/shortlists", h.ListShortlist)
}

// Favorite bookmarks a talent and notifies them the first time
func (h *FavoriteHandler) Favorite(c echo.Context) error {
	user, err := h.client(c)
	if err != nil {
		return err
	}
	talentID := c.Param("id")

	created, err := h.favoriteRepository.AddFavorite(c.Request().Context(), models.Favorite{
		ClientID:  user.ID,
		TalentID:  talentID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if created {
		h.notify(c, models.NotificationFavorite, user, talentID, "")
	}
	return success(c, http.StatusOK, echo.Map{"favorited": true, "created": created})
}

// Shortlist adds a talent to one of the client's projects
func (h *FavoriteHandler) Shortlist(c echo.Context) error {
	user, err := h.client(c)
	if err != nil {
		return err
	}
	var req models.ShortlistRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	talentID := c.Param("id")

	created, err := h.favoriteRepository.AddShortlist(c.Request().Context(), models.Shortlist{
		ClientID:  user.ID,
		TalentID:  talentID,
		ProjectID: req.ProjectID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if created {
		h.notify(c, models.NotificationShortlist, user, talentID, req.ProjectID)
	}
	return success(c, http.StatusOK, echo.Map{"shortlisted": true, "created": created})
}

func (h *FavoriteHandler) ListFavorites(c echo.Context) error {
	user, err := h.client(c)
	if err != nil {
		return err
	}
	favs, err := h.favoriteRepository.ListFavorites(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, echo.Map{"favorites": favs})
}

// ListShortlist lists the shortlist of ?projectId=, or every project when omitted
func (h *FavoriteHandler) ListShortlist(c echo.Context) error {
	user, err := h.client(c)
	if err != nil {
		return err
	}
	entries, err := h.favoriteRepository.ListShortlist(c.Request().Context(), user.ID, c.QueryParam("projectId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, echo.Map{"shortlist": entries})
}

func (h *FavoriteHandler) client(c echo.Context) (models.UserCompact, error) {
	user, err := currentUser(c)
	if err != nil {
		return user, err
	}
	if user.Role != models.RoleClient {
		return user, echo.NewHTTPError(http.StatusForbidden, "Only clients can favorite or shortlist talent")
	}
	return user, nil
}

func (h *FavoriteHandler) notify(c echo.Context, kind models.NotificationType, from models.UserCompact, talentID, projectID string) {
	n := &models.TalentNotification{
		ID:         uuid.NewString(),
		Type:       kind,
		TalentID:   talentID,
		ClientID:   from.ID,
		ClientName: from.Name,
		ProjectID:  projectID,
		CreatedAt:  time.Now(),
	}
	if err := h.notificationRepository.CreateNotification(c.Request().Context(), n); err != nil {
		h.logger.Warn("talent notification failed", zap.String("type", string(kind)), zap.String("talent", talentID), zap.Error(err))
	}
}
