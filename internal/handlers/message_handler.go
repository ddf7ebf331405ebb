package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/voxmarket/backend/internal/delivery"
	"github.com/anonto42/voxmarket/backend/internal/messaging"
	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/realtime"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MessageHandler handles chat over REST and the websocket channel
type MessageHandler struct {
	messages *messaging.Service
	hub      *realtime.Hub
	limiter  *middleware.UserLimiter
	logger   *zap.Logger
}

func NewMessageHandler(messages *messaging.Service, hub *realtime.Hub, limiter *middleware.UserLimiter, logger *zap.Logger) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &MessageHandler{messages: messages, hub: hub, limiter: limiter, logger: logger}
	hub.OnFrame(h.handleFrame)
	return h
}

// RegisterMessageRoutes registers message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages", h.Send, middleware.RateLimit(h.limiter))
	g.GET("/messages/pending", h.Pending)
	g.POST("/messages/retry", h.Retry)
	g.GET("/conversations/:userId", h.Conversation)
}

// Send delivers a message, falling back to the retry queue when the relay is down
func (h *MessageHandler) Send(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.messages.Send(c.Request().Context(), user, req.ToID, req.Content)
	if err != nil {
		return messageError(err)
	}
	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	return success(c, status, res)
}

// Pending lists the caller's undelivered messages
func (h *MessageHandler) Pending(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	pending, err := h.messages.Pending(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, echo.Map{"messages": pending, "count": len(pending)})
}

// Retry re-sends the caller's queued messages now
func (h *MessageHandler) Retry(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	res, err := h.messages.Retry(c.Request().Context(), user.ID)
	if errors.Is(err, delivery.ErrSweepInProgress) {
		return echo.NewHTTPError(http.StatusConflict, "A retry is already running")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, res)
}

// Conversation returns the latest messages between the caller and :userId
func (h *MessageHandler) Conversation(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	msgs, err := h.messages.Conversation(c.Request().Context(), user.ID, c.Param("userId"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return success(c, http.StatusOK, echo.Map{
		"conversationId": models.ConversationID(user.ID, c.Param("userId")),
		"messages":       msgs,
	})
}

// Connect upgrades to the realtime channel
func (h *MessageHandler) Connect(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.hub.Serve(c.Response(), c.Request(), user.ID); err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("user", user.ID), zap.Error(err))
	}
	return nil
}

func (h *MessageHandler) handleFrame(ctx context.Context, userID string, frame realtime.Frame) error {
	if frame.Type != realtime.FrameSendMessage {
		return nil
	}
	var req models.SendMessageRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return errors.New("invalid send_message payload")
	}
	if !h.limiter.Allow(userID) {
		return errors.New("too many messages, slow down")
	}

	from := models.UserCompact{ID: userID}
	if claims, ok := middleware.ClaimsFromContext(ctx); ok {
		from.Name = claims.Name
		from.Role = claims.Role
	}
	_, err := h.messages.Send(ctx, from, req.ToID, req.Content)
	return err
}

func messageError(err error) error {
	switch {
	case errors.Is(err, messaging.ErrEmptyMessage), errors.Is(err, messaging.ErrSelfMessage),
		errors.Is(err, messaging.ErrNoRecipient), errors.Is(err, messaging.ErrTooLong):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
