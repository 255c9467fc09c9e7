package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/todo-be/internal/api/handlers"
	"github.com/isdelr/todo-be/internal/auth"
	"github.com/isdelr/todo-be/internal/logger"
	"github.com/isdelr/todo-be/internal/services"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Users          services.UserServiceProvider
	Todos          services.TodoServiceProvider
	Issuer         *auth.Issuer
	Store          handlers.Pinger
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	authHandler := handlers.NewAuthHandler(d.Users, d.Issuer)
	todoHandler := handlers.NewTodoHandler(d.Todos)
	healthHandler := handlers.NewHealthHandler(d.Store)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Get("/test", healthHandler.Test)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware(d.Issuer))

			r.Get("/me", authHandler.GetMe)
			r.Route("/todos", func(r chi.Router) {
				r.Get("/", todoHandler.GetAll)
				r.Post("/", todoHandler.Create)
				r.Put("/{id}", todoHandler.Update)
				r.Delete("/{id}", todoHandler.Delete)
			})
		})
	})

	return r
}
