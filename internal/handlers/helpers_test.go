package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/anonto42/voxmarket/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// caller is injected through test headers in place of a signed token
func asCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Request().Header.Get("X-Test-User"); id != "" {
			c.Set(middleware.ClaimsKey, &models.JwtCustomClaims{
				UserID: id,
				Name:   c.Request().Header.Get("X-Test-Name"),
				Role:   c.Request().Header.Get("X-Test-Role"),
			})
		}
		return next(c)
	}
}

func newEcho() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.Validator = validators.NewValidator()
	return e, e.Group("/api", asCaller)
}

func newMemoryStore() *storage.Store {
	return storage.NewStore(storage.NewMemoryBackend(), storage.DefaultQuota(), storage.DefaultCleanupPolicy(), nil)
}

type caller struct {
	id, name, role string
}

var (
	clientA = caller{"1", "Casey", models.RoleClient}
	talentB = caller{"2", "Bailey", models.RoleTalent}
	other   = caller{"3", "Quinn", models.RoleClient}
	admin   = caller{"9", "Ops", models.RoleAdmin}
	anon    = caller{}
)

func do(t *testing.T, e *echo.Echo, who caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if who.id != "" {
		req.Header.Set("X-Test-User", who.id)
		req.Header.Set("X-Test-Name", who.name)
		req.Header.Set("X-Test-Role", who.role)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// data decodes the "data" field of a success envelope into out
func data(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
