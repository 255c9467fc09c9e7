package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/todo-be/internal/auth"
	"github.com/isdelr/todo-be/internal/models"
	"github.com/isdelr/todo-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	service services.UserServiceProvider
	issuer  *auth.Issuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{service: service, issuer: issuer}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Register(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			writeMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		if writeValidationError(w, err) {
			return
		}
		writeServerError(w, err, "Failed to register user")
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		writeServerError(w, err, "Failed to generate token")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "User created successfully",
		Token:   token,
		User:    user.Public(),
	})
}

// Login handles user authentication and token generation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			writeMessage(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		writeServerError(w, err, "Failed to authenticate user")
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		writeServerError(w, err, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    user.Public(),
	})
}

// GetMe retrieves the currently authenticated user from the token.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeServerError(w, errors.New("no claims in context"), "Could not retrieve user claims from context")
		return
	}

	user, err := h.service.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Warn().Str("user_id", claims.UserID).Msg("User from token not found")
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		writeServerError(w, err, "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
