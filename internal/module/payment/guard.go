package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Guard rejects a second active purchase of the same target by the same owner.
type Guard[P Purchasable] struct {
	store Store[P]
}

// NewGuard creates a guard over store.
func NewGuard[P Purchasable](store Store[P]) *Guard[P] {
	return &Guard[P]{store: store}
}

// CheckExisting returns the owner's non-cancelled record for target, or
// ErrNotFound when there is none.
func (g *Guard[P]) CheckExisting(ctx context.Context, owner uuid.UUID, target string) (P, error) {
	return g.store.FindActive(ctx, owner, target)
}

// Ensure returns ErrDuplicatePurchase if an active record already exists.
func (g *Guard[P]) Ensure(ctx context.Context, owner uuid.UUID, target string) error {
	existing, err := g.CheckExisting(ctx, owner, target)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicatePurchase, existing.PaymentRecord().ID)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check existing purchase: %w", err)
	}
}
