package injurysolution

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/catalog"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// SolutionCatalog looks up injury exercise solutions.
type SolutionCatalog interface {
	GetInjuryExerciseSolution(ctx context.Context, id uuid.UUID) (*catalog.InjuryExerciseSolution, error)
}

// Repository defines the interface for purchase data access.
type Repository interface {
	payment.Store[*Purchase]
	ListByOwner(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Purchase, int64, error)
}

// NewRepository creates a new purchase repository.
func NewRepository(db *gorm.DB, opts ...payment.StoreOption) Repository {
	return payment.NewGormStore[Purchase](db, opts...)
}

// Service implements injury solution purchases.
type Service struct {
	repo      Repository
	solutions SolutionCatalog
	engine    *payment.Engine[*Purchase]
}

// NewService creates a new injury solution service. opts configure the payment engine.
func NewService(repo Repository, solutions SolutionCatalog, gateway payment.Gateway, logger *zap.Logger, opts ...payment.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]payment.Option{payment.WithLogger(logger)}, opts...)
	return &Service{
		repo:      repo,
		solutions: solutions,
		engine:    payment.NewEngine[*Purchase](purchaseDomain{}, repo, gateway, opts...),
	}
}

// Payments returns the payment lifecycle of purchases.
func (s *Service) Payments() payment.Operations {
	return s.engine
}

// Buy records owner's purchase of a solution at its current price.
func (s *Service) Buy(ctx context.Context, owner, solutionID uuid.UUID, email string) (*Purchase, error) {
	solution, err := s.solutions.GetInjuryExerciseSolution(ctx, solutionID)
	if err != nil {
		return nil, err
	}

	p := &Purchase{
		Record: payment.Record{
			OwnerID:      owner,
			TargetRef:    solution.ID.String(),
			PriceDue:     solution.Price,
			ContactEmail: strings.TrimSpace(email),
		},
		SolutionTitle: solution.Title,
	}
	if err := s.engine.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a purchase by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List returns the owner's purchases.
func (s *Service) List(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Purchase, int64, error) {
	return s.repo.ListByOwner(ctx, owner, page)
}
