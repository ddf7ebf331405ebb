package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/voxmarket/backend/internal/escrow"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// EscrowHandler exposes the payment ledger
type EscrowHandler struct {
	ledger *escrow.Ledger
}

func NewEscrowHandler(ledger *escrow.Ledger) *EscrowHandler {
	return &EscrowHandler{ledger: ledger}
}

// RegisterEscrowRoutes registers escrow routes
func (h *EscrowHandler) RegisterEscrowRoutes(g *echo.Group) {
	g.POST("/escrow", h.Create)
	g.GET("/escrow", h.Query)
	g.GET("/escrow/:id", h.Get)
	g.POST("/escrow/:id/capture", h.Capture)
	g.POST("/escrow/:id/release", h.Release)
	g.POST("/escrow/:id/dispute", h.Dispute)
	g.POST("/escrow/:id/refund", h.Refund)
}

// Create opens a pending payment from the calling client
func (h *EscrowHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if user.Role != models.RoleClient {
		return echo.NewHTTPError(http.StatusForbidden, "Only clients can fund escrow")
	}

	var req models.CreateEscrowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.TalentID == user.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot pay yourself")
	}

	payment, err := h.ledger.Create(c.Request().Context(), escrow.CreateParams{
		Amount:      req.Amount,
		Currency:    req.Currency,
		ClientID:    user.ID,
		TalentID:    req.TalentID,
		ProjectID:   req.ProjectID,
		Description: req.Description,
	})
	if err != nil {
		return escrowError(err)
	}
	return success(c, http.StatusCreated, payment)
}

// Query lists the caller's payments; ?role=client|talent narrows the side
func (h *EscrowHandler) Query(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	payments, err := h.ledger.Query(c.Request().Context(), user.ID, c.QueryParam("role"))
	if err != nil {
		return escrowError(err)
	}
	return success(c, http.StatusOK, echo.Map{"payments": payments})
}

func (h *EscrowHandler) Get(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	payment, err := h.ledger.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return escrowError(err)
	}
	if !canView(user, payment) {
		return echo.NewHTTPError(http.StatusNotFound, "Escrow payment not found")
	}
	return success(c, http.StatusOK, payment)
}

// Capture confirms the client's funds are held. Repeating it is harmless.
func (h *EscrowHandler) Capture(c echo.Context) error {
	if _, err := h.authorize(c, payerOnly); err != nil {
		return err
	}
	payment, err := h.ledger.Capture(c.Request().Context(), c.Param("id"))
	if err != nil {
		return escrowError(err)
	}
	if payment == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Escrow payment not found")
	}
	return success(c, http.StatusOK, payment)
}

// Release pays out held funds to the talent
func (h *EscrowHandler) Release(c echo.Context) error {
	if _, err := h.authorize(c, payerOnly); err != nil {
		return err
	}
	var req models.ReleaseEscrowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	payment, err := h.ledger.Release(c.Request().Context(), c.Param("id"), req.PayeeEmail)
	if err != nil {
		return escrowError(err)
	}
	return success(c, http.StatusOK, payment)
}

// Dispute can be raised by either party
func (h *EscrowHandler) Dispute(c echo.Context) error {
	if _, err := h.authorize(c, canView); err != nil {
		return err
	}
	var req models.DisputeEscrowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	payment, err := h.ledger.Dispute(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return escrowError(err)
	}
	return success(c, http.StatusOK, payment)
}

func (h *EscrowHandler) Refund(c echo.Context) error {
	if _, err := h.authorize(c, payerOnly); err != nil {
		return err
	}
	payment, err := h.ledger.Refund(c.Request().Context(), c.Param("id"))
	if err != nil {
		return escrowError(err)
	}
	return success(c, http.StatusOK, payment)
}

func (h *EscrowHandler) authorize(c echo.Context, allowed func(models.UserCompact, *models.EscrowPayment) bool) (*models.EscrowPayment, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	payment, err := h.ledger.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, escrowError(err)
	}
	if !canView(user, payment) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Escrow payment not found")
	}
	if !allowed(user, payment) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Not allowed for this payment")
	}
	return payment, nil
}

func canView(u models.UserCompact, p *models.EscrowPayment) bool {
	return u.Role == models.RoleAdmin || p.ClientID == u.ID || p.TalentID == u.ID
}

func payerOnly(u models.UserCompact, p *models.EscrowPayment) bool {
	return u.Role == models.RoleAdmin || p.ClientID == u.ID
}

func escrowError(err error) error {
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Escrow payment not found")
	case errors.Is(err, escrow.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, escrow.ErrInvalidPayment), errors.Is(err, escrow.ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
