package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportsclub/server/internal/module/payment"
)

// Repository looks up the priced things members can buy. Missing entries
// are reported as payment.ErrTargetNotFound.
type Repository interface {
	GetRace(ctx context.Context, id uuid.UUID) (*Race, error)
	GetCoachingCourse(ctx context.Context, id uuid.UUID) (*CoachingCourse, error)
	GetTrainingProgramPackage(ctx context.Context, id uuid.UUID) (*TrainingProgramPackage, error)
	GetInjuryExerciseSolution(ctx context.Context, id uuid.UUID) (*InjuryExerciseSolution, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetRace(ctx context.Context, id uuid.UUID) (*Race, error) {
	var race Race
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&race).Error; err != nil {
		return nil, lookupError("race", id, err)
	}
	return &race, nil
}

func (r *repository) GetCoachingCourse(ctx context.Context, id uuid.UUID) (*CoachingCourse, error) {
	var course CoachingCourse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, lookupError("coaching course", id, err)
	}
	return &course, nil
}

func (r *repository) GetTrainingProgramPackage(ctx context.Context, id uuid.UUID) (*TrainingProgramPackage, error) {
	var pkg TrainingProgramPackage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error; err != nil {
		return nil, lookupError("training package", id, err)
	}
	return &pkg, nil
}

func (r *repository) GetInjuryExerciseSolution(ctx context.Context, id uuid.UUID) (*InjuryExerciseSolution, error) {
	var solution InjuryExerciseSolution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&solution).Error; err != nil {
		return nil, lookupError("injury solution", id, err)
	}
	return &solution, nil
}

// GetProducts loads every product in ids. A single missing product fails the lookup.
func (r *repository) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*Product{}, nil
	}
	var products []Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return indexProducts(ids, products)
}

func indexProducts(ids []uuid.UUID, products []Product) (map[uuid.UUID]*Product, error) {
	byID := make(map[uuid.UUID]*Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: product %s", payment.ErrTargetNotFound, id)
		}
	}
	return byID, nil
}

func lookupError(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", payment.ErrTargetNotFound, kind, id)
	}
	return fmt.Errorf("load %s: %w", kind, err)
}
