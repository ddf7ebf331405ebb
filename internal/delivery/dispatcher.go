// Package delivery relays chat messages to the remote messaging API and
// keeps the ones it could not deliver in a bounded-retry fallback queue.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrUnreachable means no relay endpoint accepted the message.
	ErrUnreachable = errors.New("delivery: relay unreachable")
	// ErrCircuitOpen means the breaker refused the call and no endpoint was
	// contacted. It wraps ErrUnreachable so first sends still queue.
	ErrCircuitOpen = fmt.Errorf("%w: circuit open", ErrUnreachable)
)

// Outbound is the wire form of a message handed to the relay.
type Outbound struct {
	ID        string    `json:"id"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Sender delivers a message to its recipient.
type Sender interface {
	Dispatch(ctx context.Context, msg Outbound) error
}

// LocalSender accepts every message. It is used when no relay is configured
// and the service itself is the message of record.
type LocalSender struct{}

func (LocalSender) Dispatch(context.Context, Outbound) error { return nil }

// DispatcherConfig configures an HTTPDispatcher.
type DispatcherConfig struct {
	// Endpoints are tried in order; the first 2xx response wins.
	Endpoints []string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// BreakerFailures consecutive failed dispatches open the circuit.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open before a trial call.
	BreakerCooldown time.Duration
}

// HTTPDispatcher posts messages to relay endpoints behind a circuit breaker.
type HTTPDispatcher struct {
	cfg     DispatcherConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewHTTPDispatcher(cfg DispatcherConfig, logger *zap.Logger) *HTTPDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	logger = logger.Named("dispatcher")

	d := &HTTPDispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "message-relay",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("relay circuit changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return d
}

// State reports the breaker state, for health output.
func (d *HTTPDispatcher) State() string {
	return d.breaker.State().String()
}

// Dispatch delivers msg to the first endpoint that accepts it.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, msg Outbound) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	_, err = d.breaker.Execute(func() (interface{}, error) {
		return nil, d.tryEndpoints(ctx, body)
	})
	switch {
	case err == nil:
		metrics.RecordDeliveryAttempt("delivered")
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordDeliveryAttempt("circuit_open")
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	default:
		metrics.RecordDeliveryAttempt("failed")
		return err
	}
}

func (d *HTTPDispatcher) tryEndpoints(ctx context.Context, body []byte) error {
	if len(d.cfg.Endpoints) == 0 {
		return fmt.Errorf("%w: no endpoints configured", ErrUnreachable)
	}

	var errs []error
	for _, endpoint := range d.cfg.Endpoints {
		err := d.post(ctx, endpoint, body)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Debug("relay endpoint failed", zap.String("endpoint", endpoint), zap.Error(err))
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, errors.Join(errs...))
}

func (d *HTTPDispatcher) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %d", endpoint, resp.StatusCode)
	}
	return nil
}
