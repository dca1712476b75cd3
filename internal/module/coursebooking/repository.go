package coursebooking

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Repository defines the interface for course booking data access.
type Repository interface {
	payment.Store[*Booking]
	ListByOwner(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Booking, int64, error)
	UpdateColumns(ctx context.Context, b *Booking, columns ...string) error
}

// NewRepository creates a new course booking repository.
func NewRepository(db *gorm.DB, opts ...payment.StoreOption) Repository {
	return payment.NewGormStore[Booking](db, opts...)
}
