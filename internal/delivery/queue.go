package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/metrics"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrSweepInProgress is returned when a sweep is requested while one runs.
var ErrSweepInProgress = errors.New("delivery: sweep already running")

// DeliveredFunc is called once for every message that reached the relay,
// whether on first send or on a later sweep.
type DeliveredFunc func(ctx context.Context, msg models.PendingMessage)

// SendResult tells the caller what happened to a message.
type SendResult struct {
	Message   models.PendingMessage `json:"message"`
	Delivered bool                  `json:"delivered"`
	Queued    bool                  `json:"queued"`
}

// SweepResult summarizes one pass over the fallback queue.
type SweepResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Abandoned int `json:"abandoned"`
	// Deferred counts messages left untouched because the relay circuit was open.
	Deferred  int `json:"deferred"`
	Remaining int `json:"remaining"`
}

// Queue sends messages and parks undeliverable ones for bounded retry.
type Queue struct {
	sender      Sender
	repo        repositories.PendingMessageRepository
	logger      *zap.Logger
	onDelivered DeliveredFunc
	now         func() time.Time

	sweepMu sync.Mutex
}

func NewQueue(sender Sender, repo repositories.PendingMessageRepository, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		sender: sender,
		repo:   repo,
		logger: logger.Named("delivery"),
		now:    time.Now,
	}
}

// OnDelivered registers the hook run after each successful delivery.
func (q *Queue) OnDelivered(fn DeliveredFunc) {
	q.onDelivered = fn
}

// Send dispatches a draft carrying sender, recipient and content; the id,
// timestamp and retry state are assigned here. When the relay is unreachable
// the message is queued with a zero retry count and the result reports Queued.
func (q *Queue) Send(ctx context.Context, draft models.PendingMessage) (*SendResult, error) {
	msg := models.PendingMessage{
		ID:        uuid.NewString(),
		FromID:    draft.FromID,
		FromName:  draft.FromName,
		ToID:      draft.ToID,
		Content:   draft.Content,
		Timestamp: q.now(),
	}

	err := q.sender.Dispatch(ctx, outbound(msg))
	if err == nil {
		q.delivered(ctx, msg)
		return &SendResult{Message: msg, Delivered: true}, nil
	}
	if !errors.Is(err, ErrUnreachable) {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	msg.LastError = err.Error()
	if qerr := q.repo.Enqueue(ctx, msg); qerr != nil {
		return nil, fmt.Errorf("queueing undelivered message: %w", qerr)
	}
	q.logger.Warn("relay unreachable, message queued", zap.String("id", msg.ID), zap.String("to", msg.ToID), zap.Error(err))
	return &SendResult{Message: msg, Queued: true}, nil
}

// Sweep retries the queued messages sent by fromID, or every sender's when
// fromID is empty, skipping those that exhausted their retries. Delivered
// messages leave the queue; failed attempts bump their retry count. An open
// relay circuit ends the pass without charging the remaining messages.
func (q *Queue) Sweep(ctx context.Context, fromID string) (SweepResult, error) {
	var res SweepResult
	if !q.sweepMu.TryLock() {
		return res, ErrSweepInProgress
	}
	defer q.sweepMu.Unlock()

	var (
		pending []models.PendingMessage
		err     error
	)
	if fromID == "" {
		pending, err = q.repo.List(ctx)
	} else {
		pending, err = q.repo.ListBySender(ctx, fromID)
	}
	if err != nil {
		return res, fmt.Errorf("listing pending messages: %w", err)
	}

	circuitOpen := false
	for _, msg := range pending {
		if msg.Abandoned() {
			res.Abandoned++
			continue
		}
		if circuitOpen {
			res.Deferred++
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := q.sender.Dispatch(ctx, outbound(msg))
		if errors.Is(err, ErrCircuitOpen) {
			q.logger.Info("relay circuit open, deferring sweep", zap.String("id", msg.ID))
			circuitOpen = true
			res.Deferred++
			continue
		}

		res.Attempted++
		if err == nil {
			if rerr := q.repo.Remove(ctx, msg.ID); rerr != nil {
				q.logger.Error("removing delivered message", zap.String("id", msg.ID), zap.Error(rerr))
			}
			q.delivered(ctx, msg)
			res.Delivered++
			continue
		}
		if !errors.Is(err, ErrUnreachable) {
			return res, err
		}

		updated, ferr := q.repo.RecordFailure(ctx, msg.ID, q.now(), err.Error())
		if ferr != nil {
			q.logger.Error("recording delivery failure", zap.String("id", msg.ID), zap.Error(ferr))
			continue
		}
		res.Failed++
		if updated.Abandoned() {
			q.logger.Warn("message abandoned after retries", zap.String("id", msg.ID), zap.Int("retries", updated.RetryCount))
		}
	}

	res.Remaining = len(pending) - res.Delivered
	if fromID == "" {
		metrics.SetPendingMessages(res.Remaining)
	}
	if res.Attempted > 0 || res.Deferred > 0 {
		q.logger.Info("sweep finished",
			zap.Int("attempted", res.Attempted),
			zap.Int("delivered", res.Delivered),
			zap.Int("failed", res.Failed),
			zap.Int("abandoned", res.Abandoned),
			zap.Int("deferred", res.Deferred))
	}
	return res, nil
}

// Pending lists the queued messages sent by fromID.
func (q *Queue) Pending(ctx context.Context, fromID string) ([]models.PendingMessage, error) {
	return q.repo.ListBySender(ctx, fromID)
}

// Schedule runs a sweep now and then on the given cron spec (for example
// "@every 1m"). The caller stops the returned scheduler.
func (q *Queue) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := q.Sweep(ctx, ""); err != nil && !errors.Is(err, ErrSweepInProgress) {
			q.logger.Error("scheduled sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling sweep %q: %w", spec, err)
	}

	if _, err := q.Sweep(ctx, ""); err != nil && !errors.Is(err, ErrSweepInProgress) {
		q.logger.Error("startup sweep failed", zap.Error(err))
	}
	c.Start()
	return c, nil
}

func (q *Queue) delivered(ctx context.Context, msg models.PendingMessage) {
	if q.onDelivered != nil {
		q.onDelivered(ctx, msg)
	}
}

func outbound(m models.PendingMessage) Outbound {
	return Outbound{ID: m.ID, FromID: m.FromID, ToID: m.ToID, Content: m.Content, Timestamp: m.Timestamp}
}
