package users

import (
	"context"
	"fmt"

	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// Service wraps user account business rules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// PrincipalFor builds the request principal for a user id, normalizing the
// owned-product references to bare ids at the boundary.
func (s *Service) PrincipalFor(ctx context.Context, userID string) (*shared.Principal, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("users: load principal: %w", err)
	}
	if !user.IsActive {
		return nil, ErrNotFound
	}
	return &shared.Principal{
		UserID:     user.ID,
		Role:       user.Role,
		ProductIDs: RefIDs(user.Products),
	}, nil
}
