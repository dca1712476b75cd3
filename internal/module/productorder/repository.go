package productorder

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Repository defines the interface for product order data access.
type Repository interface {
	payment.Store[*Order]
	ListByOwner(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Order, int64, error)
	UpdateColumns(ctx context.Context, o *Order, columns ...string) error
}

// NewRepository creates a new product order repository.
func NewRepository(db *gorm.DB, opts ...payment.StoreOption) Repository {
	return payment.NewGormStore[Order](db, opts...)
}
