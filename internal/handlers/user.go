package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.GET("/users/discovery", h.Discovery)
	g.GET("/users/:id", h.GetUser)
}

// GetUser returns the public view of another user
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(uint(id))
	if err != nil {
		return userError(err)
	}
	return success(c, http.StatusOK, user.ToCompact())
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	id, err := strconv.ParseUint(getUserIDFromContext(c), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	user, err := h.userRepository.GetUserByID(uint(id))
	if err != nil {
		return userError(err)
	}
	return success(c, http.StatusOK, user)
}

// Discovery lists talent for clients, or clients for talent
func (h *UserHandler) Discovery(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	role := models.RoleTalent
	if user.Role == models.RoleTalent {
		role = models.RoleClient
	}

	page, limit := pagination(c)
	users, total, err := h.userRepository.ListUsersByRole(role, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	compact := make([]models.UserCompact, 0, len(users))
	for i := range users {
		compact = append(compact, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"users": compact},
		"meta":    echo.Map{"currentPage": page, "itemsPerPage": limit, "totalItems": total},
	})
}

func userError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
