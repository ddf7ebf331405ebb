package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/labstack/echo/v4"
)

func getClaimsFromContext(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(middleware.ClaimsKey).(*models.JwtCustomClaims)
	return claims
}

// getUserIDFromContext returns "" when the request is unauthenticated
func getUserIDFromContext(c echo.Context) string {
	if claims := getClaimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func currentUser(c echo.Context) (models.UserCompact, error) {
	claims := getClaimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return models.UserCompact{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return models.UserCompact{ID: claims.UserID, Name: claims.Name, Role: claims.Role}, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

func pagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit
}

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}
