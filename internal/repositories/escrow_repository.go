package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/storage"
)

// EscrowRepository defines the interface for escrow payment persistence
type EscrowRepository interface {
	Create(ctx context.Context, payment *models.EscrowPayment) error
	GetByID(ctx context.Context, id string) (*models.EscrowPayment, error)
	// Update applies fn to the stored record atomically. When fn returns an
	// error nothing is written and the unchanged record is returned with it.
	Update(ctx context.Context, id string, fn func(*models.EscrowPayment) error) (*models.EscrowPayment, error)
	ListByParty(ctx context.Context, userID, role string) ([]models.EscrowPayment, error)
}

type storeEscrowRepository struct {
	payments *storage.Collection[models.EscrowPayment]
}

// NewStoreEscrowRepository keeps escrow payments under the escrow_payments key
func NewStoreEscrowRepository(store *storage.Store) EscrowRepository {
	return &storeEscrowRepository{payments: storage.NewCollection[models.EscrowPayment](store, storage.KeyEscrowPayments)}
}

func (r *storeEscrowRepository) Create(ctx context.Context, payment *models.EscrowPayment) error {
	return r.payments.Update(ctx, func(items []models.EscrowPayment) ([]models.EscrowPayment, error) {
		for _, p := range items {
			if p.ID == payment.ID {
				return nil, fmt.Errorf("escrow payment %s already exists", payment.ID)
			}
		}
		return append(items, *payment), nil
	})
}

func (r *storeEscrowRepository) GetByID(ctx context.Context, id string) (*models.EscrowPayment, error) {
	items, err := r.payments.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *storeEscrowRepository) Update(ctx context.Context, id string, fn func(*models.EscrowPayment) error) (*models.EscrowPayment, error) {
	var result *models.EscrowPayment
	err := r.payments.Update(ctx, func(items []models.EscrowPayment) ([]models.EscrowPayment, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			working := items[i]
			if err := fn(&working); err != nil {
				current := items[i]
				result = &current
				return nil, err
			}
			items[i] = working
			result = &working
			return items, nil
		}
		return nil, ErrNotFound
	})
	return result, err
}

func (r *storeEscrowRepository) ListByParty(ctx context.Context, userID, role string) ([]models.EscrowPayment, error) {
	items, err := r.payments.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.EscrowPayment, 0)
	for _, p := range items {
		switch role {
		case models.RoleClient:
			if p.ClientID == userID {
				out = append(out, p)
			}
		case models.RoleTalent:
			if p.TalentID == userID {
				out = append(out, p)
			}
		default:
			if p.ClientID == userID || p.TalentID == userID {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
