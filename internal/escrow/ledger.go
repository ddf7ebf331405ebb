// Package escrow implements the simulated escrow payment ledger.
//
// Payments move pending -> held -> {released | disputed | refunded}. No real
// funds move; every gateway call is a fixed, cancellable delay.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/metrics"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("escrow payment not found")
	ErrInvalidTransition = errors.New("invalid escrow transition")
	ErrInvalidPayment    = errors.New("invalid escrow payment")
	ErrInvalidRole       = errors.New("role must be client, talent or empty")
)

// errUnchanged aborts a repository update without writing.
var errUnchanged = errors.New("unchanged")

// Ledger records escrow payments and drives their status transitions.
type Ledger struct {
	repo         repositories.EscrowRepository
	logger       *zap.Logger
	gatewayDelay time.Duration
	now          func() time.Time
	newID        func() string
}

type Option func(*Ledger)

// WithGatewayDelay sets the artificial latency of each simulated gateway call.
func WithGatewayDelay(d time.Duration) Option {
	return func(l *Ledger) { l.gatewayDelay = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func NewLedger(repo repositories.EscrowRepository, logger *zap.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		repo:   repo,
		logger: logger.Named("escrow"),
		now:    time.Now,
		newID:  func() string { return "ORDER-" + strings.ToUpper(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateParams describes a new payment intent.
type CreateParams struct {
	Amount      float64
	Currency    string
	ClientID    string
	TalentID    string
	ProjectID   string
	Description string
}

func (p CreateParams) validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidPayment)
	}
	if p.ClientID == "" || p.TalentID == "" {
		return fmt.Errorf("%w: client and talent are required", ErrInvalidPayment)
	}
	if p.ClientID == p.TalentID {
		return fmt.Errorf("%w: client and talent must differ", ErrInvalidPayment)
	}
	return nil
}

// Create opens a pending payment.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (*models.EscrowPayment, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := l.gateway(ctx); err != nil {
		return nil, err
	}

	payment := &models.EscrowPayment{
		ID:          l.newID(),
		Amount:      p.Amount,
		Currency:    strings.ToUpper(p.Currency),
		ClientID:    p.ClientID,
		TalentID:    p.TalentID,
		ProjectID:   p.ProjectID,
		Description: p.Description,
		Status:      models.EscrowPending,
		CreatedAt:   l.now(),
	}
	if err := l.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("storing escrow payment: %w", err)
	}

	metrics.RecordEscrowTransition(string(models.EscrowPending))
	l.logger.Info("escrow created",
		zap.String("id", payment.ID),
		zap.Float64("amount", payment.Amount),
		zap.String("currency", payment.Currency),
		zap.String("client", payment.ClientID),
		zap.String("talent", payment.TalentID))
	return payment, nil
}

// Capture moves a pending payment to held. An unknown id returns (nil, nil)
// and a payment in any other status is returned unchanged.
func (l *Ledger) Capture(ctx context.Context, id string) (*models.EscrowPayment, error) {
	if err := l.gateway(ctx); err != nil {
		return nil, err
	}

	payment, err := l.repo.Update(ctx, id, func(p *models.EscrowPayment) error {
		if p.Status != models.EscrowPending {
			return errUnchanged
		}
		now := l.now()
		p.Status = models.EscrowHeld
		p.CapturedAt = &now
		return nil
	})
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		l.logger.Warn("capture of unknown escrow ignored", zap.String("id", id))
		return nil, nil
	case errors.Is(err, errUnchanged):
		l.logger.Info("capture ignored", zap.String("id", id), zap.String("status", string(payment.Status)))
		return payment, nil
	case err != nil:
		return nil, fmt.Errorf("capturing %s: %w", id, err)
	}

	metrics.RecordEscrowTransition(string(models.EscrowHeld))
	l.logger.Info("escrow captured", zap.String("id", id))
	return payment, nil
}

// Release pays out a held payment. The payee email is recorded, not verified.
func (l *Ledger) Release(ctx context.Context, id, payeeEmail string) (*models.EscrowPayment, error) {
	return l.closeHeld(ctx, id, models.EscrowReleased, func(p *models.EscrowPayment, now time.Time) {
		if now.Before(p.CreatedAt) {
			now = p.CreatedAt
		}
		p.ReleasedAt = &now
		p.PayeeEmail = payeeEmail
	})
}

// Dispute marks a held payment as disputed. Resolution is not modeled.
func (l *Ledger) Dispute(ctx context.Context, id, reason string) (*models.EscrowPayment, error) {
	return l.closeHeld(ctx, id, models.EscrowDisputed, func(p *models.EscrowPayment, now time.Time) {
		p.ClosedAt = &now
		p.DisputeReason = reason
	})
}

// Refund returns a held payment to the client.
func (l *Ledger) Refund(ctx context.Context, id string) (*models.EscrowPayment, error) {
	return l.closeHeld(ctx, id, models.EscrowRefunded, func(p *models.EscrowPayment, now time.Time) {
		p.ClosedAt = &now
	})
}

func (l *Ledger) closeHeld(ctx context.Context, id string, to models.EscrowStatus, apply func(*models.EscrowPayment, time.Time)) (*models.EscrowPayment, error) {
	if err := l.gateway(ctx); err != nil {
		return nil, err
	}

	var from models.EscrowStatus
	payment, err := l.repo.Update(ctx, id, func(p *models.EscrowPayment) error {
		from = p.Status
		if p.Status != models.EscrowHeld {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
		}
		p.Status = to
		apply(p, l.now())
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return payment, err
	}

	metrics.RecordEscrowTransition(string(to))
	l.logger.Info("escrow closed", zap.String("id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	return payment, nil
}

// Get returns a payment by id.
func (l *Ledger) Get(ctx context.Context, id string) (*models.EscrowPayment, error) {
	p, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, err
}

// Query returns the payments where userID is the party named by role;
// an empty role matches either side.
func (l *Ledger) Query(ctx context.Context, userID, role string) ([]models.EscrowPayment, error) {
	switch role {
	case "", models.RoleClient, models.RoleTalent:
	default:
		return nil, ErrInvalidRole
	}
	return l.repo.ListByParty(ctx, userID, role)
}

func (l *Ledger) gateway(ctx context.Context) error {
	if l.gatewayDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(l.gatewayDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
