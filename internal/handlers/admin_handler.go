package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/moderation"
	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// AdminHandler exposes moderation and storage maintenance to admins
type AdminHandler struct {
	moderation *moderation.Service
	store      *storage.Store
}

func NewAdminHandler(mod *moderation.Service, store *storage.Store) *AdminHandler {
	return &AdminHandler{moderation: mod, store: store}
}

// RegisterAdminRoutes registers admin routes; g must already require the admin role
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.POST("/messages/:id/flag", h.FlagMessage)
	g.DELETE("/messages/:id", h.DeleteMessage)
	g.GET("/actions", h.Actions)
	g.GET("/storage", h.StorageUsage)
	g.POST("/storage/cleanup", h.Cleanup)
}

func (h *AdminHandler) FlagMessage(c echo.Context) error {
	var req models.FlagMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.moderation.Flag(c.Request().Context(), c.Param("id"), req.Reason, getUserIDFromContext(c))
	if err != nil {
		return moderationError(err)
	}
	return success(c, http.StatusOK, msg)
}

func (h *AdminHandler) DeleteMessage(c echo.Context) error {
	if err := h.moderation.Delete(c.Request().Context(), c.Param("id"), getUserIDFromContext(c)); err != nil {
		return moderationError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Actions returns the admin log, newest first
func (h *AdminHandler) Actions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	actions, err := h.moderation.Actions(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, echo.Map{"actions": actions})
}

func (h *AdminHandler) StorageUsage(c echo.Context) error {
	ctx := c.Request().Context()
	used, err := h.store.Usage(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	keys, err := h.store.Keys(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	quota := h.store.Quota()
	return success(c, http.StatusOK, echo.Map{
		"usedBytes":     used,
		"maxTotalBytes": quota.MaxTotalBytes,
		"maxItemBytes":  quota.MaxItemBytes,
		"keys":          keys,
	})
}

// Cleanup runs one cleanup tier on demand
func (h *AdminHandler) Cleanup(c echo.Context) error {
	var req models.CleanupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var err error
	switch req.Level {
	case storage.CleanupAggressive:
		err = h.store.AggressiveCleanup(ctx)
	case storage.CleanupEmergency:
		err = h.store.EmergencyCleanup(ctx)
	}
	h.moderation.Record(ctx, getUserIDFromContext(c), models.ActionStorageCleanup, req.Level, "")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	used, _ := h.store.Usage(ctx)
	return success(c, http.StatusOK, echo.Map{"level": req.Level, "usedBytes": used})
}

func moderationError(err error) error {
	if errors.Is(err, moderation.ErrMessageNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
