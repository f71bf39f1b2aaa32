// Package authpw provides email/password authentication for citizen
// accounts.
package authpw

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"nagarconnect/api/internal/i18n"
	"nagarconnect/api/internal/rbac"
	"nagarconnect/api/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// UserStore defines the storage interface for auth.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (store.User, error)
}

// Service provides email/password authentication.
type Service struct {
	store    UserStore
	validate *validator.Validate
}

func NewService(users UserStore) *Service {
	return &Service{
		store:    users,
		validate: validator.New(),
	}
}

// SignUpRequest contains sign-up parameters.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
	Language string `json:"language" validate:"omitempty,oneof=en hi"`
}

// SignUp creates a new citizen account. Role is always assigned server
// side, never taken from the request.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return store.User{}, fmt.Errorf("validate sign up: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Language:     string(i18n.Normalize(req.Language)),
		Role:         string(rbac.RoleCitizen),
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	created, err := s.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrConflict) {
		return store.User{}, ErrEmailTaken
	}
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// SignInRequest contains sign-in parameters.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn authenticates a user. Lookup misses and password mismatches
// return the same error so callers cannot enumerate registered emails.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}
