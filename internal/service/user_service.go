package service

import (
	"context"
	"fmt"
	"strings"

	"yatube/internal/errors"
	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

type UserServiceInterface interface {
	Register(ctx context.Context, user *model.User, password string) error
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

var _ UserServiceInterface = (*UserService)(nil)

// UserService handles accounts and credentials.
type UserService struct {
	userRepo interfaces.UserRepository
}

func NewUserService(userRepo interfaces.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// IsUsernameTaken reports whether the username belongs to an existing account.
func (s *UserService) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "find user", err)
	}
	return user != nil, nil
}

// Register hashes the password and stores the new account.
func (s *UserService) Register(ctx context.Context, user *model.User, password string) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return errors.Invalid("username", "username is required")
	}
	if !util.ValidUsername(user.Username) {
		return errors.Invalid("username", "username may contain only letters, digits and @/./+/-/_")
	}
	if len(password) < MinPasswordLength {
		return errors.Wrap(errors.ErrWeakPassword, "password is too short",
			&errors.FieldError{Field: "password1", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)})
	}

	taken, err := s.IsUsernameTaken(ctx, user.Username)
	if err != nil {
		return err
	}
	if taken {
		return errors.Wrap(errors.ErrUserExists, "username already exists",
			&errors.FieldError{Field: "username", Message: "a user with that username already exists"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "hash password", err)
	}
	user.PasswordHash = string(hashed)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return errors.Wrap(errors.ErrDatabase, "create user", err)
	}

	util.Logger.Info("user registered", zap.Int("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "find user", err)
	}
	if user == nil {
		util.Logger.Info("login failed: unknown user", zap.String("username", username))
		return nil, errors.New(errors.ErrInvalidCredentials, "invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		util.Logger.Info("login failed: wrong password", zap.Int("user_id", user.ID))
		return nil, errors.New(errors.ErrInvalidCredentials, "invalid username or password")
	}

	util.Logger.Info("user logged in", zap.Int("user_id", user.ID))
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "find user", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found")
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "find user", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found")
	}
	return user, nil
}
