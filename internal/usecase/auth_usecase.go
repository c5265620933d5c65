package usecase

import (
	"context"
	"errors"
	"strings"

	"boardtalk/internal/entity"
	"boardtalk/internal/repository"
	"boardtalk/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials   = &Error{Kind: KindUnauthorized, Message: "invalid email or password"}
	ErrEmailAlreadyTaken    = &Error{Kind: KindValidation, Message: "email already taken"}
	ErrUsernameAlreadyTaken = &Error{Kind: KindValidation, Message: "username already taken"}
)

type AuthUsecase interface {
	Register(ctx context.Context, req entity.RegisterRequest) (entity.AuthResponse, error)
	Login(ctx context.Context, req entity.LoginRequest) (entity.AuthResponse, error)
	ValidateAccessToken(token string) (*entity.TokenClaims, error)
}

type authUsecase struct {
	userRepo   repository.UserRepository
	jwtManager *jwt.JWTManager
}

func NewAuthUsecase(userRepo repository.UserRepository, jwtManager *jwt.JWTManager) AuthUsecase {
	return &authUsecase{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

func (u *authUsecase) Register(ctx context.Context, req entity.RegisterRequest) (entity.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || req.Password == "" || req.Username == "" || req.FirstName == "" {
		return entity.AuthResponse{}, validationError("all fields are required")
	}

	emailExists, err := u.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return entity.AuthResponse{}, persistenceError("check email", err)
	}
	if emailExists {
		return entity.AuthResponse{}, ErrEmailAlreadyTaken
	}

	usernameExists, err := u.userRepo.UsernameExists(ctx, req.Username)
	if err != nil {
		return entity.AuthResponse{}, persistenceError("check username", err)
	}
	if usernameExists {
		return entity.AuthResponse{}, ErrUsernameAlreadyTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return entity.AuthResponse{}, err
	}

	user := entity.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	userId, err := u.userRepo.Create(ctx, user)
	if err != nil {
		return entity.AuthResponse{}, persistenceError("create user", err)
	}
	user.Id = userId

	return u.issue(user)
}

func (u *authUsecase) Login(ctx context.Context, req entity.LoginRequest) (entity.AuthResponse, error) {
	user, err := u.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return entity.AuthResponse{}, ErrInvalidCredentials
		}
		return entity.AuthResponse{}, persistenceError("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return entity.AuthResponse{}, ErrInvalidCredentials
	}

	return u.issue(user)
}

func (u *authUsecase) issue(user entity.User) (entity.AuthResponse, error) {
	accessToken, err := u.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return entity.AuthResponse{}, err
	}

	user.Password = ""
	return entity.AuthResponse{
		AccessToken: accessToken,
		User:        user,
	}, nil
}

func (u *authUsecase) ValidateAccessToken(token string) (*entity.TokenClaims, error) {
	claims, err := u.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, &Error{Kind: KindUnauthorized, Message: "Unauthorized", Err: err}
	}
	return claims, nil
}
