package escrow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/anonto42/voxmarket/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	store := storage.NewStore(storage.NewMemoryBackend(), storage.DefaultQuota(), storage.DefaultCleanupPolicy(), nil)
	return NewLedger(repositories.NewStoreEscrowRepository(store), nil, opts...)
}

func defaultParams() CreateParams {
	return CreateParams{
		Amount:    100,
		Currency:  "usd",
		ClientID:  "client-1",
		TalentID:  "talent-1",
		ProjectID: "project-1",
	}
}

func TestLedger_CaptureThenRelease(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	p, err := l.Create(ctx, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, models.EscrowPending, p.Status)
	assert.Equal(t, "USD", p.Currency)
	assert.NotEmpty(t, p.ID)
	assert.Nil(t, p.ReleasedAt)

	p, err = l.Capture(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowHeld, p.Status)
	require.NotNil(t, p.CapturedAt)

	p, err = l.Release(ctx, p.ID, "talent@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.EscrowReleased, p.Status)
	require.NotNil(t, p.ReleasedAt)
	assert.False(t, p.ReleasedAt.Before(p.CreatedAt))
	assert.Equal(t, "talent@example.com", p.PayeeEmail)

	stored, err := l.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowReleased, stored.Status)
}

func TestLedger_ReleasedAtNeverBeforeCreatedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := newTestLedger(t, WithClock(func() time.Time { return clock() }))

	p, err := l.Create(ctx, defaultParams())
	require.NoError(t, err)
	_, err = l.Capture(ctx, p.ID)
	require.NoError(t, err)

	// A clock that steps backwards must not produce releasedAt < createdAt.
	clock = func() time.Time { return now.Add(-time.Hour) }
	p, err = l.Release(ctx, p.ID, "t@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, *p.ReleasedAt)
}

func TestLedger_DoubleCaptureIsNoop(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	p, err := l.Create(ctx, defaultParams())
	require.NoError(t, err)
	first, err := l.Capture(ctx, p.ID)
	require.NoError(t, err)

	second, err := l.Capture(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowHeld, second.Status)
	assert.Equal(t, first.CapturedAt, second.CapturedAt)

	_, err = l.Release(ctx, p.ID, "t@example.com")
	require.NoError(t, err)
	released, err := l.Capture(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowReleased, released.Status)
}

func TestLedger_CaptureUnknownIsSilent(t *testing.T) {
	p, err := newTestLedger(t).Capture(context.Background(), "ORDER-MISSING")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestLedger_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	p, err := l.Create(ctx, defaultParams())
	require.NoError(t, err)

	_, err = l.Release(ctx, p.ID, "t@example.com")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = l.Dispute(ctx, p.ID, "not delivered")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = l.Release(ctx, "ORDER-MISSING", "t@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := l.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowPending, stored.Status)
}

func TestLedger_DisputeAndRefundFromHeld(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for _, tc := range []struct {
		name string
		act  func(id string) (*models.EscrowPayment, error)
		want models.EscrowStatus
	}{
		{"dispute", func(id string) (*models.EscrowPayment, error) { return l.Dispute(ctx, id, "audio never delivered") }, models.EscrowDisputed},
		{"refund", func(id string) (*models.EscrowPayment, error) { return l.Refund(ctx, id) }, models.EscrowRefunded},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := l.Create(ctx, defaultParams())
			require.NoError(t, err)
			_, err = l.Capture(ctx, p.ID)
			require.NoError(t, err)

			p, err = tc.act(p.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Status)
			assert.NotNil(t, p.ClosedAt)
			assert.Nil(t, p.ReleasedAt)

			_, err = l.Release(ctx, p.ID, "t@example.com")
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestLedger_CreateValidation(t *testing.T) {
	l := newTestLedger(t)
	for _, mutate := range []func(*CreateParams){
		func(p *CreateParams) { p.Amount = 0 },
		func(p *CreateParams) { p.Amount = -5 },
		func(p *CreateParams) { p.Currency = "DOLLARS" },
		func(p *CreateParams) { p.TalentID = "" },
		func(p *CreateParams) { p.TalentID = p.ClientID },
	} {
		p := defaultParams()
		mutate(&p)
		_, err := l.Create(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidPayment)
	}
}

func TestLedger_QueryByRole(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	for i := 0; i < 3; i++ {
		p := defaultParams()
		p.ProjectID = fmt.Sprintf("project-%d", i)
		if i == 2 {
			p.ClientID, p.TalentID = "talent-1", "talent-9"
		}
		_, err := l.Create(ctx, p)
		require.NoError(t, err)
	}

	asClient, err := l.Query(ctx, "talent-1", models.RoleClient)
	require.NoError(t, err)
	assert.Len(t, asClient, 1)

	asTalent, err := l.Query(ctx, "talent-1", models.RoleTalent)
	require.NoError(t, err)
	assert.Len(t, asTalent, 2)

	either, err := l.Query(ctx, "talent-1", "")
	require.NoError(t, err)
	assert.Len(t, either, 3)

	_, err = l.Query(ctx, "talent-1", "admin")
	assert.ErrorIs(t, err, ErrInvalidRole)

	for _, p := range either {
		assert.True(t, p.Status.Valid())
	}
}

func TestLedger_GatewayDelayHonorsCancellation(t *testing.T) {
	l := newTestLedger(t, WithGatewayDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Create(ctx, defaultParams())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	all, err := l.Query(context.Background(), "client-1", "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
