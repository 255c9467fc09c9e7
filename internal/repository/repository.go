// Package repository holds the persistence side of the credential and todo
// stores. Every todo query is filtered by the owning user's id.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/todo-be/internal/models"
)

var (
	// ErrNotFound is returned when no record matches. For todos this covers
	// records owned by someone else as well.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository persists user accounts.
type UserRepository interface {
	// Create assigns the ID and stores the user.
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Count(ctx context.Context) (int64, error)
}

// TodoRepository persists todos. All methods take the owner id.
type TodoRepository interface {
	// ListByOwner returns the owner's todos, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error)
	// Create assigns the ID and stores the todo.
	Create(ctx context.Context, todo *models.Todo) error
	Update(ctx context.Context, id, ownerID string, patch models.TodoPatch, updatedAt time.Time) (models.Todo, error)
	Delete(ctx context.Context, id, ownerID string) error
	Count(ctx context.Context) (int64, error)
}

// Store bundles the repositories of one backend with its lifecycle.
type Store struct {
	Users UserRepository
	Todos TodoRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
