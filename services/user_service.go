package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/trucolab/truco-league/models"
	"github.com/trucolab/truco-league/repositories"
)

type UserService interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	SearchUsers(ctx context.Context, query string) ([]*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return user, nil
}

func (s *userService) SearchUsers(ctx context.Context, query string) ([]*models.User, error) {
	users, err := s.userRepo.SearchByUsername(ctx, query, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
