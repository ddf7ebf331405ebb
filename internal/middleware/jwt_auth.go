package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// ClaimsKey is the echo context key holding *models.JwtCustomClaims.
const ClaimsKey = "user"

var errUnexpectedSigning = errors.New("unexpected signing method")

// ParseToken validates a locally issued token and returns its claims.
func ParseToken(tokenString, secret string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JWTAuthMiddleware checks for a valid JWT and extracts user claims. When
// firebase is set, a Firebase ID token is accepted in place of a local one.
// Browsers cannot set headers on websocket upgrades, so the token may also
// arrive as the token query parameter.
func JWTAuthMiddleware(secret string, firebase *FirebaseResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := ParseToken(tokenString, secret)
			if err != nil && firebase != nil {
				claims, err = firebase.Resolve(c.Request().Context(), tokenString)
			}
			if err != nil {
				if errors.Is(err, jwt.ErrSignatureInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			// Store user claims in context
			c.Set(ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(context.WithValue(c.Request().Context(), claimsCtxKey{}, claims)))
			return next(c)
		}
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(ClaimsKey).(*models.JwtCustomClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			for _, r := range roles {
				if claims.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
		}
	}
}

type claimsCtxKey struct{}

// ClaimsFromContext returns the claims stored by JWTAuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*models.JwtCustomClaims, bool) {
	claims, ok := ctx.Value(claimsCtxKey{}).(*models.JwtCustomClaims)
	return claims, ok
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if t := c.QueryParam("token"); t != "" {
			return t, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
