// Package client talks to the todo API on behalf of one user and keeps their
// session token in a TokenStore.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/isdelr/todo-be/internal/models"
)

var (
	// ErrNetwork wraps every failure to reach the server.
	ErrNetwork = errors.New("network error")
	// ErrNotLoggedIn is returned by authenticated calls when no token is stored.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError carries the status and message of a rejected request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is a todo API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authResponse struct {
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, password, name string) (models.PublicUser, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	return c.authenticate(ctx, "/register", body)
}

// Login stores a fresh token for the given credentials.
func (c *Client) Login(ctx context.Context, email, password string) (models.PublicUser, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/login", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (models.PublicUser, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, false, body, &resp); err != nil {
		return models.PublicUser{}, err
	}
	if err := c.tokens.Save(resp.Token); err != nil {
		return models.PublicUser{}, err
	}
	return resp.User, nil
}

// Logout forgets the stored token. The server keeps no session state.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// LoggedIn reports whether a token is stored.
func (c *Client) LoggedIn() bool {
	token, err := c.tokens.Load()
	return err == nil && token != ""
}

// Me returns the user the stored token belongs to.
func (c *Client) Me(ctx context.Context) (models.PublicUser, error) {
	var user models.PublicUser
	err := c.do(ctx, http.MethodGet, "/me", true, nil, &user)
	return user, err
}

// ListTodos returns the caller's todos, newest first.
func (c *Client) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := c.do(ctx, http.MethodGet, "/todos", true, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo adds a todo. The description may be empty.
func (c *Client) CreateTodo(ctx context.Context, title, description string) (models.Todo, error) {
	body := map[string]string{"title": title, "description": description}
	var todo models.Todo
	err := c.do(ctx, http.MethodPost, "/todos", true, body, &todo)
	return todo, err
}

// UpdateTodo changes the fields set in patch.
func (c *Client) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	var todo models.Todo
	err := c.do(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), true, patch, &todo)
	return todo, err
}

// ToggleTodo flips the completion flag of todo.
func (c *Client) ToggleTodo(ctx context.Context, todo models.Todo) (models.Todo, error) {
	completed := !todo.Completed
	return c.UpdateTodo(ctx, todo.ID, models.TodoPatch{Completed: &completed})
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.tokens.Load()
		if err != nil {
			return err
		}
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg messageResponse
		if json.NewDecoder(resp.Body).Decode(&msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if authed && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			// The token is no good any more; drop it so the user logs in again.
			if err := c.tokens.Clear(); err != nil {
				return errors.Join(apiErr, err)
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
