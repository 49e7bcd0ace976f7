package service

import (
	"context"
	"errors"
	"strings"

	"todoapp/internal/auth"
	dom "todoapp/internal/domain"
	"todoapp/internal/repo"
	"todoapp/internal/utils"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrInvalidCredentials is returned for unknown email and wrong password alike,
	// so a caller cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// UserService handles registration, authentication and user lookups.
type UserService struct {
	repo repo.UserRepo
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo) *UserService {
	return &UserService{repo: repo}
}

// Register creates a new user with a freshly hashed password.
// Email matching is exact, it is case-sensitive on purpose.
func (s *UserService) Register(ctx context.Context, email, password string) (dom.User, error) {
	email = strings.TrimSpace(email)
	hash, err := auth.HashPassword(password)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, email, hash)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrEmailTaken
		}
		return dom.User{}, err
	}
	return u, nil
}

// Authenticate checks email and password; returns the user if valid.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (dom.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, err
	}
	if !auth.VerifyPassword(password, u.HashedPassword) {
		return dom.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID returns the user by id, ErrNotFound if absent.
func (s *UserService) GetByID(ctx context.Context, id string) (dom.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, err
	}
	return u, nil
}

// GetByEmail returns the user by exact email match, ErrNotFound if absent.
func (s *UserService) GetByEmail(ctx context.Context, email string) (dom.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, err
	}
	return u, nil
}
