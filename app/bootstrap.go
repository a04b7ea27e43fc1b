package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"securityapi/internal/auth"
	"securityapi/internal/config"
	"securityapi/internal/db"
	"securityapi/internal/observability"
	"securityapi/internal/post"
	"securityapi/internal/seed"
)

type Runtime struct {
	Config  config.Config
	Logger  *observability.Logger
	Handler http.Handler
	Close   func() error
}

// Build wires configuration, storage and handlers into a Runtime. A missing
// or weak signing secret fails here, before any request is served.
func Build(ctx context.Context, cfg config.Config) (*Runtime, error) {
	logger := observability.NewLogger(cfg.AppEnv)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	database, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	userRepo := auth.NewRepository(database)
	authService := auth.NewService(userRepo, auth.NewBcryptHasher(cfg.BcryptCost), tokens, auth.NewLoginThrottle(), logger)
	authHandler := auth.NewHandler(authService)

	postRepo := post.NewRepository(database)
	postHandler := post.NewHandler(postRepo)

	if cfg.SeedData {
		if err := seed.Run(ctx, userRepo, authService, postRepo, logger); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("seed data: %w", err)
		}
	}

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(authService, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.Handle("GET /api/data", protected(postHandler.ListAll))
	mux.Handle("POST /api/posts", protected(postHandler.Create))
	mux.Handle("GET /api/posts/my", protected(postHandler.ListMine))
	mux.Handle("GET /api/profile", protected(postHandler.Profile))
	mux.HandleFunc("GET /health", healthHandler(database))
	mux.Handle("GET /metrics", promhttp.Handler())

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         3600,
	})

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, corsMiddleware(mux)))

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Handler: handler,
		Close: func() error {
			observability.FlushSentry()
			_ = logger.Sync()
			return database.Close()
		},
	}, nil
}

// OpenDatabase opens and pings the Postgres pool described by cfg.
func OpenDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return database, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
