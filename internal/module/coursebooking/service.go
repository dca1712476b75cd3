package coursebooking

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/catalog"
	"github.com/sportsclub/server/internal/module/payment"
	"github.com/sportsclub/server/internal/utils/pagination"
)

// CourseCatalog looks up coaching courses.
type CourseCatalog interface {
	GetCoachingCourse(ctx context.Context, id uuid.UUID) (*catalog.CoachingCourse, error)
}

// Service implements course booking operations.
type Service struct {
	repo    Repository
	courses CourseCatalog
	engine  *payment.Engine[*Booking]
	logger  *zap.Logger
}

// NewService creates a new course booking service. opts configure the payment engine.
func NewService(repo Repository, courses CourseCatalog, gateway payment.Gateway, logger *zap.Logger, opts ...payment.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]payment.Option{payment.WithLogger(logger)}, opts...)
	return &Service{
		repo:    repo,
		courses: courses,
		engine:  payment.NewEngine[*Booking](purchaseDomain{}, repo, gateway, opts...),
		logger:  logger,
	}
}

// Payments returns the payment lifecycle of course bookings.
func (s *Service) Payments() payment.Operations {
	return s.engine
}

// Book books a course for owner at the course's current price.
func (s *Service) Book(ctx context.Context, owner, courseID uuid.UUID, email string) (*Booking, error) {
	course, err := s.courses.GetCoachingCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		Record: payment.Record{
			OwnerID:      owner,
			TargetRef:    course.ID.String(),
			PriceDue:     course.Price,
			ContactEmail: strings.TrimSpace(email),
		},
		CourseTitle:      course.Title,
		AttendanceStatus: AttendanceNotAttended,
	}
	if err := s.engine.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// List returns the owner's bookings.
func (s *Service) List(ctx context.Context, owner uuid.UUID, page *pagination.Pagination) ([]*Booking, int64, error) {
	return s.repo.ListByOwner(ctx, owner, page)
}

// SetAttendance records the member's attendance of a booked course.
func (s *Service) SetAttendance(ctx context.Context, id uuid.UUID, attendance string) (*Booking, error) {
	a, err := ParseAttendance(attendance)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.AttendanceStatus = a
	if err := s.repo.UpdateColumns(ctx, b, "attendance_status"); err != nil {
		return nil, err
	}
	s.logger.Info("attendance updated", zap.String("id", b.ID.String()), zap.String("attendance", string(a)))
	return b, nil
}
