// Package messaging is the send path shared by the REST and websocket surfaces.
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anonto42/voxmarket/backend/internal/delivery"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/moderation"
	"github.com/anonto42/voxmarket/backend/internal/realtime"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyMessage = errors.New("message content is empty")
	ErrSelfMessage  = errors.New("cannot message yourself")
	ErrNoRecipient  = errors.New("message recipient is required")
	ErrTooLong      = errors.New("message content is too long")
)

// Emitter pushes realtime events to a user.
type Emitter interface {
	Emit(userID string, evt realtime.Event) int
}

// Service sends messages through the delivery queue and records the ones
// that reach the relay.
type Service struct {
	queue         *delivery.Queue
	messages      repositories.MessageRepository
	notifications repositories.NotificationRepository
	moderation    *moderation.Service
	emitter       Emitter
	logger        *zap.Logger
	now           func() time.Time
}

// NewService wires the delivery hook of queue to the service. emitter may be nil.
func NewService(queue *delivery.Queue, messages repositories.MessageRepository, notifications repositories.NotificationRepository, mod *moderation.Service, emitter Emitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		queue:         queue,
		messages:      messages,
		notifications: notifications,
		moderation:    mod,
		emitter:       emitter,
		logger:        logger.Named("messaging"),
		now:           time.Now,
	}
	queue.OnDelivered(s.deliver)
	return s
}

// Send dispatches content from sender to toID. Undeliverable messages are
// queued, the recipient is notified and the sender told it is waiting.
func (s *Service) Send(ctx context.Context, from models.UserCompact, toID, content string) (*delivery.SendResult, error) {
	toID = strings.TrimSpace(toID)
	if toID == "" {
		return nil, ErrNoRecipient
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, ErrTooLong
	}
	if toID == from.ID {
		return nil, ErrSelfMessage
	}

	res, err := s.queue.Send(ctx, models.PendingMessage{
		FromID:   from.ID,
		FromName: from.Name,
		ToID:     toID,
		Content:  content,
	})
	if err != nil {
		return nil, err
	}

	if res.Queued {
		s.notify(ctx, res.Message)
		s.emit(from.ID, realtime.Event{Type: realtime.EventMessageQueued, Data: res.Message})
	}
	return res, nil
}

// Conversation returns up to limit of the latest messages between two users.
func (s *Service) Conversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	return s.messages.GetConversation(ctx, userA, userB, limit)
}

// Pending lists the caller's queued messages.
func (s *Service) Pending(ctx context.Context, fromID string) ([]models.PendingMessage, error) {
	return s.queue.Pending(ctx, fromID)
}

// Retry runs a sweep over the messages fromID has waiting in the fallback queue.
func (s *Service) Retry(ctx context.Context, fromID string) (delivery.SweepResult, error) {
	return s.queue.Sweep(ctx, fromID)
}

func (s *Service) deliver(ctx context.Context, pm models.PendingMessage) {
	msg := &models.Message{
		ID:             pm.ID,
		ConversationID: models.ConversationID(pm.FromID, pm.ToID),
		FromID:         pm.FromID,
		ToID:           pm.ToID,
		Content:        pm.Content,
		CreatedAt:      pm.Timestamp,
	}
	s.moderation.Screen(ctx, msg)

	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("storing delivered message", zap.String("id", msg.ID), zap.Error(err))
	}

	// queued messages already notified the recipient when they were parked
	if pm.RetryCount == 0 && pm.LastAttempt == nil && pm.LastError == "" {
		s.notify(ctx, pm)
	}
	s.emit(pm.ToID, realtime.Event{Type: realtime.EventNewMessage, Data: msg})
	s.emit(pm.FromID, realtime.Event{Type: realtime.EventMessageSent, Data: msg})
}

func (s *Service) notify(ctx context.Context, pm models.PendingMessage) {
	n := &models.TalentNotification{
		ID:         uuid.NewString(),
		Type:       models.NotificationMessage,
		TalentID:   pm.ToID,
		ClientID:   pm.FromID,
		ClientName: pm.FromName,
		MessageID:  pm.ID,
		CreatedAt:  s.now(),
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("message notification failed", zap.String("message", pm.ID), zap.Error(err))
	}
}

func (s *Service) emit(userID string, evt realtime.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(userID, evt)
}
