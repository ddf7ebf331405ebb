package middleware

import (
	"net/http"
	"sync"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// UserLimiter hands out one token bucket per user.
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	return &UserLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether userID may act now.
func (l *UserLimiter) Allow(userID string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit rejects requests from callers over their budget. It must run
// after JWTAuthMiddleware.
func RateLimit(l *UserLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.RealIP()
			if claims, ok := c.Get(ClaimsKey).(*models.JwtCustomClaims); ok {
				userID = claims.UserID
			}
			if !l.Allow(userID) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many messages, slow down")
			}
			return next(c)
		}
	}
}
