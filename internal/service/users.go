package service

import (
	"context"
	"errors"
	"fmt"

	"questboard/internal/model"
	"questboard/internal/repository"
)

type UserService struct {
	repo Store
}

func NewUserService(repo Store) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) RegisterUser(ctx context.Context, user *model.User) error {
	return s.repo.Transaction(ctx, func(tx StoreTx) error {
		_, err := tx.LockUser(ctx, user.TelegramID)
		if err == nil {
			return ErrUserExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		user.GoldBalance = 0
		if user.RegistrationDate.IsZero() {
			user.RegistrationDate = now()
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}
