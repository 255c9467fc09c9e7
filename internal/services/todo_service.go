package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/isdelr/todo-be/internal/models"
	"github.com/isdelr/todo-be/internal/repository"
)

// TodoServiceProvider defines the interface for todo services. Every
// operation is scoped to ownerID.
type TodoServiceProvider interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error)
	Create(ctx context.Context, ownerID, title, description string) (models.Todo, error)
	Update(ctx context.Context, id, ownerID string, patch models.TodoPatch) (models.Todo, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// TodoService provides business logic for todo management.
type TodoService struct {
	todos repository.TodoRepository
	now   func() time.Time
}

// NewTodoService creates a new TodoService.
func NewTodoService(todos repository.TodoRepository) *TodoService {
	return &TodoService{todos: todos, now: time.Now}
}

// ListByOwner returns all todos for the owner, newest-created first.
func (s *TodoService) ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error) {
	return s.todos.ListByOwner(ctx, ownerID)
}

// Create stores a new, not yet completed todo.
func (s *TodoService) Create(ctx context.Context, ownerID, title, description string) (models.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Todo{}, required("title")
	}

	now := s.now().UTC()
	todo := models.Todo{
		Title:       title,
		Description: description,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.todos.Create(ctx, &todo); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// Update applies the provided fields. A todo owned by someone else is
// reported exactly like a missing one.
func (s *TodoService) Update(ctx context.Context, id, ownerID string, patch models.TodoPatch) (models.Todo, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Todo{}, required("title")
		}
		patch.Title = &title
	}

	todo, err := s.todos.Update(ctx, id, ownerID, patch, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return models.Todo{}, ErrNotFound
	}
	return todo, err
}

// Delete removes the owner's todo.
func (s *TodoService) Delete(ctx context.Context, id, ownerID string) error {
	err := s.todos.Delete(ctx, id, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
