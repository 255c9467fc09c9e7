package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/todo-be/internal/models"
	"github.com/isdelr/todo-be/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, email, password, name string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	VerifyPassword(plain, hashed string) bool
	Authenticate(ctx context.Context, email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	users repository.UserRepository
	cost  int
	now   func() time.Time

	// dummyHash is compared against when the email is unknown so that both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// maxPasswordBytes is the longest input bcrypt hashes.
const maxPasswordBytes = 72

// NewUserService creates a new UserService hashing with the given bcrypt cost.
// It fails when cost is outside bcrypt's range.
func NewUserService(users repository.UserRepository, cost int) (*UserService, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hashing: %w", err)
	}
	return &UserService{users: users, cost: cost, now: time.Now, dummyHash: dummy}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user, hashing their password.
func (s *UserService) Register(ctx context.Context, email, password, name string) (models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	switch {
	case email == "":
		return models.User{}, required("email")
	case password == "":
		return models.User{}, required("password")
	case len(password) > maxPasswordBytes:
		return models.User{}, &ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
	case name == "":
		return models.User{}, required("name")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return user, nil
}

// FindByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) FindByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// FindByID retrieves a single user by their ID.
func (s *UserService) FindByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// VerifyPassword reports whether plain matches the bcrypt hash.
func (s *UserService) VerifyPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// Authenticate verifies a user's credentials. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if !s.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}
