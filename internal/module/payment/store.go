package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/outbox"
	sharedevents "github.com/sportsclub/server/internal/shared/events"
	"github.com/sportsclub/server/internal/utils/pagination"
)

const (
	uniqueViolation   = "23505"
	activeIndexSuffix = "_owner_target_active"
)

// GormStore is the gorm-backed Store for a domain model T embedding Record.
type GormStore[T any, P interface {
	*T
	Purchasable
}] struct {
	db     *gorm.DB
	outbox bool
}

// StoreOption configures a GormStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	outbox bool
}

// WithOutbox records every status change in the transactional outbox.
func WithOutbox(enabled bool) StoreOption {
	return func(o *storeOptions) { o.outbox = enabled }
}

// NewGormStore creates a store for T, e.g. NewGormStore[Registration](db).
func NewGormStore[T any, P interface {
	*T
	Purchasable
}](db *gorm.DB, opts ...StoreOption) *GormStore[T, P] {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &GormStore[T, P]{db: db, outbox: o.outbox}
}

// DB returns the underlying handle for domain specific queries.
func (s *GormStore[T, P]) DB() *gorm.DB {
	return s.db
}

// Create inserts a new record.
func (s *GormStore[T, P]) Create(ctx context.Context, p P) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isActivePurchaseConflict(err) {
			return ErrDuplicatePurchase
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

// isActivePurchaseConflict reports whether err violates one of the
// uq_<table>_owner_target_active indexes. Other unique keys, such as
// registration numbers, are not duplicate purchases.
func isActivePurchaseConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && strings.HasSuffix(pgErr.ConstraintName, activeIndexSuffix)
}

// Get loads a record by id.
func (s *GormStore[T, P]) Get(ctx context.Context, id uuid.UUID) (P, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id))
}

// FindActive returns the owner's latest non-cancelled record for target.
func (s *GormStore[T, P]) FindActive(ctx context.Context, owner uuid.UUID, target string) (P, error) {
	return s.first(s.db.WithContext(ctx).
		Where("owner_id = ? AND target_ref = ? AND payment_status <> ?", owner, target, StatusCancelled).
		Order("created_at DESC"))
}

// FindByPollURL returns the record holding pollURL.
func (s *GormStore[T, P]) FindByPollURL(ctx context.Context, pollURL string) (P, error) {
	return s.first(s.db.WithContext(ctx).Where("poll_url = ?", pollURL))
}

// FindBy returns the first record matching query, for domain lookups such
// as registration numbers.
func (s *GormStore[T, P]) FindBy(ctx context.Context, query string, args ...any) (P, error) {
	return s.first(s.db.WithContext(ctx).Where(query, args...))
}

// ListByOwner returns one page of the owner's records, newest first, with
// the owner's total count.
func (s *GormStore[T, P]) ListByOwner(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]P, int64, error) {
	if page == nil {
		page = pagination.New()
	}
	q := s.db.WithContext(ctx).Model(P(new(T))).Where("owner_id = ?", owner)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	var rows []T
	if err := q.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	result := make([]P, len(rows))
	for i := range rows {
		result[i] = P(&rows[i])
	}
	return result, total, nil
}

// UpdateColumns writes the named domain columns of p, such as attendance
// or order status. Payment fields go through UpdatePayment.
func (s *GormStore[T, P]) UpdateColumns(ctx context.Context, p P, columns ...string) error {
	if len(columns) == 0 {
		return errors.New("update columns: no columns given")
	}
	rec := p.PaymentRecord()
	rec.UpdatedAt = time.Now().UTC()
	q := s.db.WithContext(ctx).Model(p).Select(append(columns, "updated_at"))
	if err := q.Updates(p).Error; err != nil {
		return fmt.Errorf("save purchase: %w", err)
	}
	return nil
}

// UpdatePayment writes the payment fields with a version check.
func (s *GormStore[T, P]) UpdatePayment(ctx context.Context, p P, change StatusChange) error {
	rec := p.PaymentRecord()
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(P(new(T))).
			Where("id = ? AND version = ?", rec.ID, rec.Version).
			Updates(map[string]any{
				"payment_status": rec.PaymentStatus,
				"poll_url":       rec.PollURL,
				"invoice_number": rec.InvoiceNumber,
				"version":        rec.Version + 1,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("update payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		if s.outbox && change.From != change.To {
			if err := outbox.Append(tx, change.Domain, change.ResourceID, sharedevents.PaymentStatusChangedType, change); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (s *GormStore[T, P]) first(q *gorm.DB) (P, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	return P(&row), nil
}
