package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/todo-be/internal/api"
	"github.com/isdelr/todo-be/internal/auth"
	"github.com/isdelr/todo-be/internal/config"
	"github.com/isdelr/todo-be/internal/database"
	"github.com/isdelr/todo-be/internal/logger"
	"github.com/isdelr/todo-be/internal/monitoring"
	"github.com/isdelr/todo-be/internal/repository"
	"github.com/isdelr/todo-be/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up storage
	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize store")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	todos := store.Todos
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache falls through to the store on every error, so keep going.
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis not reachable, todo cache will miss")
		}
		cancel()
		todos = repository.NewCachedTodoRepository(store.Todos, rdb, cfg.CacheTTL)
		log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("Todo list cache enabled")
	}

	// Set up services
	userService, err := services.NewUserService(store.Users, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up user service")
	}
	todoService := services.NewTodoService(todos)
	issuer := auth.NewIssuer(cfg.JWTSecret)

	// Set up and run the background stats reporter
	var reporter *monitoring.StatsReporter
	if cfg.StatsSchedule != "" {
		reporter, err = monitoring.NewStatsReporter(store.Users, store.Todos, cfg.StatsSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up stats reporter")
		}
		reporter.Start()
	}

	// Set up router
	router := api.NewRouter(api.Deps{
		Users:          userService,
		Todos:          todoService,
		Issuer:         issuer,
		Store:          store,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if reporter != nil {
		reporter.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// openStore connects to the configured backend and prepares its schema.
func openStore(cfg *config.Config) (*repository.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			db.Client().Disconnect(ctx)
			return nil, err
		}
		return repository.NewMongoStore(db), nil

	case config.DriverPostgres:
		return openSQLStore(database.Postgres, cfg.DatabaseURL)

	default:
		return openSQLStore(database.SQLite, cfg.DatabasePath)
	}
}

func openSQLStore(dialect, dsn string) (*repository.Store, error) {
	db, err := database.New(dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply database migrations: %w", err)
	}
	return repository.NewSQLStore(db, dialect), nil
}
