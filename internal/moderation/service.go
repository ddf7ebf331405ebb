package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/metrics"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SystemAdminID attributes automatic flags in the admin log.
const SystemAdminID = "system"

var ErrMessageNotFound = errors.New("message not found")

// Service flags and removes messages and records every action.
type Service struct {
	detector *Detector
	messages repositories.MessageRepository
	actions  repositories.AdminActionRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(detector *Detector, messages repositories.MessageRepository, actions repositories.AdminActionRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		detector: detector,
		messages: messages,
		actions:  actions,
		logger:   logger.Named("moderation"),
		now:      time.Now,
	}
}

// Screen marks msg as flagged when its content matches a rule. It is called
// before the message is stored and reports whether it flagged.
func (s *Service) Screen(ctx context.Context, msg *models.Message) bool {
	matched, rule := s.detector.Check(msg.Content)
	if !matched {
		return false
	}

	now := s.now()
	msg.Flagged = true
	msg.FlagReason = "auto: " + rule
	msg.FlaggedBy = SystemAdminID
	msg.FlaggedAt = &now

	metrics.RecordFlagged(rule)
	s.logger.Info("message flagged automatically", zap.String("message", msg.ID), zap.String("rule", rule), zap.String("from", msg.FromID))
	s.record(ctx, SystemAdminID, models.ActionFlagMessage, msg.ID, msg.FlagReason)
	return true
}

// Flag marks a stored message as flagged by an admin.
func (s *Service) Flag(ctx context.Context, messageID, reason, adminID string) (*models.Message, error) {
	now := s.now()
	msg, err := s.messages.UpdateMessage(ctx, messageID, func(m *models.Message) {
		m.Flagged = true
		m.FlagReason = reason
		m.FlaggedBy = adminID
		m.FlaggedAt = &now
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("flagging %s: %w", messageID, err)
	}

	metrics.RecordFlagged("manual")
	s.logger.Info("message flagged", zap.String("message", messageID), zap.String("admin", adminID))
	s.record(ctx, adminID, models.ActionFlagMessage, messageID, reason)
	return msg, nil
}

// Delete removes a stored message.
func (s *Service) Delete(ctx context.Context, messageID, adminID string) error {
	err := s.messages.DeleteMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	if err != nil {
		return fmt.Errorf("deleting %s: %w", messageID, err)
	}

	s.logger.Info("message deleted", zap.String("message", messageID), zap.String("admin", adminID))
	s.record(ctx, adminID, models.ActionDeleteMessage, messageID, "")
	return nil
}

// Actions returns the most recent admin actions, newest first.
func (s *Service) Actions(ctx context.Context, limit int) ([]models.AdminAction, error) {
	return s.actions.Recent(ctx, limit)
}

// Record appends an arbitrary action to the admin log.
func (s *Service) Record(ctx context.Context, adminID, action, targetID, reason string) {
	s.record(ctx, adminID, action, targetID, reason)
}

func (s *Service) record(ctx context.Context, adminID, action, targetID, reason string) {
	entry := models.AdminAction{
		ID:        uuid.NewString(),
		AdminID:   adminID,
		Action:    action,
		TargetID:  targetID,
		Reason:    reason,
		CreatedAt: s.now(),
	}
	if err := s.actions.Append(ctx, entry); err != nil {
		s.logger.Error("admin log append failed", zap.String("action", action), zap.Error(err))
	}
}
