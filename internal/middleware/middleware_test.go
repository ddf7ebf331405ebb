package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func signed(t *testing.T, claims *models.JwtCustomClaims, key string) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *models.JwtCustomClaims, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *models.JwtCustomClaims
	err := mw(func(c echo.Context) error {
		seen, _ = c.Get(ClaimsKey).(*models.JwtCustomClaims)
		if fromCtx, ok := ClaimsFromContext(c.Request().Context()); ok {
			assert.Same(t, seen, fromCtx)
		}
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seen, err
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestJWTAuth(t *testing.T) {
	mw := JWTAuthMiddleware(secret, nil)
	token := signed(t, &models.JwtCustomClaims{UserID: "7", Role: models.RoleTalent}, secret)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		_, claims, err := run(t, mw, req)
		require.NoError(t, err)
		require.NotNil(t, claims)
		assert.Equal(t, "7", claims.UserID)
		assert.Equal(t, models.RoleTalent, claims.Role)
	})

	t.Run("query param", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		_, claims, err := run(t, mw, req)
		require.NoError(t, err)
		assert.Equal(t, "7", claims.UserID)
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := run(t, mw, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token "+token)
		_, _, err := run(t, mw, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, &models.JwtCustomClaims{UserID: "7"}, "other"))
		_, _, err := run(t, mw, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	})

	t.Run("expired", func(t *testing.T) {
		expired := &models.JwtCustomClaims{UserID: "7"}
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, expired, secret))
		_, _, err := run(t, mw, req)
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	})
}

type fakeVerifier struct {
	uid string
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != "firebase-token" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: f.uid}, nil
}

type firebaseUsers struct {
	repositories.UserRepository
	byUID map[string]*models.User
}

func (u firebaseUsers) GetUserByFirebaseUID(uid string) (*models.User, error) {
	if user, ok := u.byUID[uid]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestJWTAuth_FirebaseFallback(t *testing.T) {
	user := &models.User{Name: "Robin", Email: "robin@example.com", Role: models.RoleTalent}
	user.ID = 42
	users := firebaseUsers{byUID: map[string]*models.User{"fb-42": user}}

	mw := JWTAuthMiddleware(secret, NewFirebaseResolver(fakeVerifier{uid: "fb-42"}, users))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer firebase-token")
	_, claims, err := run(t, mw, req)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, models.RoleTalent, claims.Role)

	unknown := JWTAuthMiddleware(secret, NewFirebaseResolver(fakeVerifier{uid: "fb-missing"}, users))
	_, _, err = run(t, unknown, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestNewFirebaseResolver_NilVerifier(t *testing.T) {
	assert.Nil(t, NewFirebaseResolver(nil, nil))
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole(models.RoleAdmin)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, http.StatusUnauthorized, statusOf(mw(next)(c)))

	c.Set(ClaimsKey, &models.JwtCustomClaims{UserID: "1", Role: models.RoleClient})
	assert.Equal(t, http.StatusForbidden, statusOf(mw(next)(c)))

	c.Set(ClaimsKey, &models.JwtCustomClaims{UserID: "1", Role: models.RoleAdmin})
	assert.NoError(t, mw(next)(c))
}

func TestUserLimiter(t *testing.T) {
	l := NewUserLimiter(0.001, 2)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per user")
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	mw := RateLimit(NewUserLimiter(0.001, 1))
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	newCtx := func(userID string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/messages", nil), httptest.NewRecorder())
		c.Set(ClaimsKey, &models.JwtCustomClaims{UserID: userID})
		return c
	}

	assert.NoError(t, mw(next)(newCtx("9")))
	assert.Equal(t, http.StatusTooManyRequests, statusOf(mw(next)(newCtx("9"))))
	assert.NoError(t, mw(next)(newCtx("10")))
}
