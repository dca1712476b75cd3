package membership

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Repository defines the interface for membership data access.
type Repository interface {
	payment.Store[*Membership]
	ListByOwner(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Membership, int64, error)
	UpdateColumns(ctx context.Context, m *Membership, columns ...string) error
}

// NewRepository creates a new membership repository.
func NewRepository(db *gorm.DB, opts ...payment.StoreOption) Repository {
	return payment.NewGormStore[Membership](db, opts...)
}
