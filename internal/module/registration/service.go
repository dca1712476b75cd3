package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/catalog"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
	"github.com/sportsclub/server/internal/utils/random"
)

// numberAttempts bounds the retries when a generated registration number is taken.
const numberAttempts = 5

// RaceCatalog looks up races.
type RaceCatalog interface {
	GetRace(ctx context.Context, id uuid.UUID) (*catalog.Race, error)
}

// CreateInput holds the athlete details of a new registration.
type CreateInput struct {
	RaceID    uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// Service implements race registration operations.
type Service struct {
	repo   Repository
	races  RaceCatalog
	engine *payment.Engine[*Registration]
	logger *zap.Logger
}

// NewService creates a new registration service. opts configure the payment engine.
func NewService(repo Repository, races RaceCatalog, gateway payment.Gateway, logger *zap.Logger, opts ...payment.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]payment.Option{payment.WithLogger(logger)}, opts...)
	return &Service{
		repo:   repo,
		races:  races,
		engine: payment.NewEngine[*Registration](purchaseDomain{}, repo, gateway, opts...),
		logger: logger,
	}
}

// Payments returns the payment lifecycle of registrations.
func (s *Service) Payments() payment.Operations {
	return s.engine
}

// Create registers owner for a race at the race's current registration price.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (*Registration, error) {
	race, err := s.races.GetRace(ctx, in.RaceID)
	if err != nil {
		return nil, err
	}

	number, err := s.allocateNumber(ctx)
	if err != nil {
		return nil, err
	}

	reg := &Registration{
		Record: payment.Record{
			OwnerID:      owner,
			TargetRef:    race.ID.String(),
			PriceDue:     race.RegistrationPrice,
			ContactEmail: strings.TrimSpace(in.Email),
		},
		RegistrationNumber: number,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		RaceName:           race.Name,
		RaceEvent:          race.Event,
	}
	if err := s.engine.Create(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Get returns a registration by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registration, error) {
	reg, err := s.repo.Get(ctx, id)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}

// GetByNumber returns a registration by its registration number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Registration, error) {
	return s.repo.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

// List returns the owner's registrations.
func (s *Service) List(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Registration, int64, error) {
	return s.repo.ListByOwner(ctx, owner, page)
}

func (s *Service) allocateNumber(ctx context.Context) (string, error) {
	for range numberAttempts {
		number, err := random.RegistrationNumber()
		if err != nil {
			return "", fmt.Errorf("generate registration number: %w", err)
		}
		_, err = s.repo.FindByNumber(ctx, number)
		if errors.Is(err, ErrRegistrationNotFound) {
			return number, nil
		}
		if err != nil {
			return "", fmt.Errorf("check registration number: %w", err)
		}
		s.logger.Warn("registration number collision", zap.String("registration_number", number))
	}
	return "", ErrNumberUnavailable
}
