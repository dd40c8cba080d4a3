package service

import (
	"context"

	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, username string) (*models.User, error)
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{
		u: u,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, username string) (*models.User, error) {
	user, isExist, err := s.u.GetByUsername(ctx, username)
	if err != nil {
		return nil, accessErr("user", username, username, err)
	}
	if !isExist {
		return nil, accessErr("user", username, username, repository.ErrNotFound)
	}
	return user, nil
}
