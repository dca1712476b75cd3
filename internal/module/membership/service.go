package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// Service implements membership operations.
type Service struct {
	repo    Repository
	fees    Fees
	engine  *payment.Engine[*Membership]
	machine *StateMachine
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new membership service. opts configure the payment engine.
func NewService(repo Repository, fees Fees, gateway payment.Gateway, logger *zap.Logger, opts ...payment.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]payment.Option{payment.WithLogger(logger)}, opts...)
	return &Service{
		repo:    repo,
		fees:    fees,
		engine:  payment.NewEngine[*Membership](purchaseDomain{}, repo, gateway, opts...),
		machine: NewStateMachine(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Payments returns the payment lifecycle of memberships.
func (s *Service) Payments() payment.Operations {
	return s.engine
}

// Apply creates a pending membership of type t for owner, priced at the configured fee.
func (s *Service) Apply(ctx context.Context, owner uuid.UUID, t Type, email string) (*Membership, error) {
	fee, err := s.fees.For(t)
	if err != nil {
		return nil, err
	}

	m := &Membership{
		Record: payment.Record{
			OwnerID:      owner,
			TargetRef:    Target,
			PriceDue:     fee,
			ContactEmail: strings.TrimSpace(email),
		},
		MembershipType:   t,
		MembershipStatus: StatusPending,
	}
	if err := s.engine.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns a membership by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Membership, error) {
	m, err := s.repo.Get(ctx, id)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrMembershipNotFound
	}
	return m, err
}

// Current returns the owner's non-cancelled membership.
func (s *Service) Current(ctx context.Context, owner uuid.UUID) (*Membership, error) {
	m, err := s.repo.FindActive(ctx, owner, Target)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrMembershipNotFound
	}
	return m, err
}

// List returns the owner's memberships, including cancelled ones.
func (s *Service) List(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Membership, int64, error) {
	return s.repo.ListByOwner(ctx, owner, page)
}

// Approve activates a pending membership and records the approver.
func (s *Service) Approve(ctx context.Context, id, approver uuid.UUID) (*Membership, error) {
	return s.change(ctx, id, StatusActive, func(m *Membership) []string {
		now := s.now()
		m.ApprovedBy = &approver
		m.ApprovedAt = &now
		return []string{"approved_by", "approved_at"}
	})
}

// Reject rejects a pending membership with remarks for the member.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, remarks string) (*Membership, error) {
	return s.change(ctx, id, StatusRejected, func(m *Membership) []string {
		m.Remarks = strings.TrimSpace(remarks)
		return []string{"remarks"}
	})
}

// Graduate ends an active membership as graduated on date, or now when date is nil.
func (s *Service) Graduate(ctx context.Context, id uuid.UUID, date *time.Time) (*Membership, error) {
	return s.change(ctx, id, StatusGraduated, func(m *Membership) []string {
		at := s.now()
		if date != nil {
			at = date.UTC()
		}
		m.GraduationDate = &at
		return []string{"graduation_date"}
	})
}

func (s *Service) change(ctx context.Context, id uuid.UUID, to Status, mutate func(*Membership) []string) (*Membership, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := m.MembershipStatus
	if err := s.machine.Transition(m, to); err != nil {
		return nil, err
	}
	columns := append([]string{"membership_status"}, mutate(m)...)
	if err := s.repo.UpdateColumns(ctx, m, columns...); err != nil {
		return nil, err
	}

	s.logger.Info("membership status changed",
		zap.String("id", m.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return m, nil
}
