package registration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Repository defines the interface for registration data access.
type Repository interface {
	payment.Store[*Registration]
	ListByOwner(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Registration, int64, error)
	FindByNumber(ctx context.Context, number string) (*Registration, error)
}

type repository struct {
	*payment.GormStore[Registration, *Registration]
}

// NewRepository creates a new registration repository.
func NewRepository(db *gorm.DB, opts ...payment.StoreOption) Repository {
	return &repository{GormStore: payment.NewGormStore[Registration](db, opts...)}
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*Registration, error) {
	reg, err := r.FindBy(ctx, "registration_number = ?", number)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}
