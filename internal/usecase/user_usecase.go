package usecase

import (
	"context"
	"errors"

	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
)

type UserUsecase interface {
	Get(ctx context.Context, userId string) (entity.User, error)
}

type userUsecase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) UserUsecase {
	return &userUsecase{
		userRepo: userRepo,
	}
}

func (u *userUsecase) Get(ctx context.Context, userId string) (entity.User, error) {
	user, err := u.userRepo.Get(ctx, userId)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.User{}, &Error{Kind: KindNotFound, Message: "user not found"}
		}
		return entity.User{}, persistenceError("load user", err)
	}

	user.Password = ""
	return user, nil
}
