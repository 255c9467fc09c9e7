package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/todo-be/internal/auth"
	"github.com/isdelr/todo-be/internal/models"
	"github.com/isdelr/todo-be/internal/services"
	"github.com/rs/zerolog/log"
)

// TodoHandler handles HTTP requests for the caller's todos. Every route sits
// behind auth.JWTMiddleware; the verified user id is the ownership filter.
type TodoHandler struct {
	service services.TodoServiceProvider
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(service services.TodoServiceProvider) *TodoHandler {
	return &TodoHandler{service: service}
}

// CreateTodoPayload defines the structure for create requests.
type CreateTodoPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func ownerID(r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

// GetAll lists the caller's todos, newest first.
func (h *TodoHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	todos, err := h.service.ListByOwner(r.Context(), owner)
	if err != nil {
		log.Error().Err(err).Str("user_id", owner).Msg("Failed to list todos")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

// Create adds a todo for the caller.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var payload CreateTodoPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	todo, err := h.service.Create(r.Context(), owner, payload.Title, payload.Description)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		log.Error().Err(err).Str("user_id", owner).Msg("Failed to create todo")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// Update changes title, description and/or completed on one of the caller's todos.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}
	id := chi.URLParam(r, "id")

	var patch models.TodoPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	todo, err := h.service.Update(r.Context(), id, owner, patch)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Todo not found")
			return
		}
		if writeValidationError(w, err) {
			return
		}
		log.Error().Err(err).Str("user_id", owner).Str("todo_id", id).Msg("Failed to update todo")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// Delete removes one of the caller's todos.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id, owner); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Todo not found")
			return
		}
		log.Error().Err(err).Str("user_id", owner).Str("todo_id", id).Msg("Failed to delete todo")
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeMessage(w, http.StatusOK, "Todo deleted successfully")
}
