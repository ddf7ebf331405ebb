package handlers

import (
	"net/http"

	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// BreakerState reports the relay circuit state.
type BreakerState interface {
	State() string
}

type HealthHandler struct {
	store   *storage.Store
	breaker BreakerState
}

// NewHealthHandler creates a HealthHandler; breaker may be nil when no relay is configured
func NewHealthHandler(store *storage.Store, breaker BreakerState) *HealthHandler {
	return &HealthHandler{store: store, breaker: breaker}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	status := http.StatusOK
	body := echo.Map{
		"status":  "healthy",
		"service": "voxmarket-api",
	}

	used, err := h.store.Usage(c.Request().Context())
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["storage"] = echo.Map{"error": err.Error()}
	} else {
		body["storage"] = echo.Map{"usedBytes": used, "maxTotalBytes": h.store.Quota().MaxTotalBytes}
	}

	relay := "local"
	if h.breaker != nil {
		relay = h.breaker.State()
	}
	body["relay"] = relay
	return c.JSON(status, body)
}
