package categories

import (
	"context"
	"fmt"

	"github.com/carteira-app/carteira/internal/shared"
)

var (
	ErrCategoryNotFound = fmt.Errorf("category %w", shared.ErrNotFound)
	ErrNotCategoryOwner = fmt.Errorf("category belongs to another user: %w", shared.ErrUnauthorized)
)

// Service wraps category business rules. It also serves the transaction
// engine's category-existence contract.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a category for the user.
func (s *Service) Create(ctx context.Context, input CreateCategoryInput) (Category, error) {
	return s.repo.Create(ctx, input)
}

// Get returns a category owned by the user.
func (s *Service) Get(ctx context.Context, id, userID int64) (Category, error) {
	cat, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}
	if cat.UserID != userID {
		return Category{}, ErrNotCategoryOwner
	}
	return cat, nil
}

// Update renames a category owned by the user.
func (s *Service) Update(ctx context.Context, id, userID int64, name, kind string) (Category, error) {
	cat, err := s.Get(ctx, id, userID)
	if err != nil {
		return Category{}, err
	}
	cat.Name = name
	cat.Kind = kind
	if err := s.repo.Update(ctx, cat); err != nil {
		return Category{}, err
	}
	return cat, nil
}

// Delete soft-deletes a category owned by the user.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

// ListForUser returns the user's categories.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Category, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Exists reports whether a category is present and not deleted.
func (s *Service) Exists(ctx context.Context, categoryID int64) (bool, error) {
	return s.repo.Exists(ctx, categoryID)
}
