// Package main is the entrypoint for the LinkSnip API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/cache"
	"github.com/linksnip/linksnip/internal/config"
	"github.com/linksnip/linksnip/internal/handler"
	"github.com/linksnip/linksnip/internal/mail"
	"github.com/linksnip/linksnip/internal/middleware"
	"github.com/linksnip/linksnip/internal/repository"
	"github.com/linksnip/linksnip/internal/server"
	"github.com/linksnip/linksnip/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(ctx); err != nil {
		logger.Error("failed to apply schema", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		os.Exit(1)
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		logger.Error("failed to configure mailer", "error", err)
		os.Exit(1)
	}
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP host not configured, email delivery disabled")
	}

	sessions, err := auth.NewSessionIssuer(auth.SessionConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTExpiresIn,
	})
	if err != nil {
		logger.Error("failed to configure session issuer", "error", err)
		os.Exit(1)
	}

	accountService := service.NewAccountService(service.AccountConfig{
		Store:       repo,
		Mailer:      mailer,
		Sessions:    sessions,
		Hasher:      auth.NewPasswordHasher(cfg.BcryptCost),
		BaseURL:     cfg.BaseURL,
		FrontendURL: cfg.FrontendURL,
		ResetTTL:    cfg.ResetTokenTTL,
		Logger:      logger,
	})
	linkService := service.NewLinkService(repo, cacheClient, cfg.BaseURL, logger)

	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	accountHandler := handler.NewAccountHandler(accountService, logger)
	linkHandler := handler.NewLinkHandler(linkService, logger)
	redirectHandler := handler.NewRedirectHandler(linkService, logger)

	r := setupRouter(healthHandler, accountHandler, linkHandler, redirectHandler, repo, sessions, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	healthHandler *handler.HealthHandler,
	accountHandler *handler.AccountHandler,
	linkHandler *handler.LinkHandler,
	redirectHandler *handler.RedirectHandler,
	repo *repository.Repository,
	sessions *auth.SessionIssuer,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(chimiddleware.RequestSize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	corsCfg.AllowCredentials = true
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Credential lifecycle (no session required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/signup", accountHandler.Signup)
		r.Get("/verify-account/{token}", accountHandler.VerifyAccount)
		r.Post("/login", accountHandler.Login)
		r.Post("/forgotPassword", accountHandler.ForgotPassword)
		r.Patch("/resetPassword/{token}", accountHandler.ResetPassword)
	})

	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Sessions: sessions,
		Store:    repo,
	}

	// Link management (session required)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Post("/shorten", linkHandler.Shorten)
		r.Get("/", linkHandler.List)
	})

	// Public redirect
	r.Get("/{shortID}", redirectHandler.Redirect)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips credentials from a connection URL before logging.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError scrubs known secrets from an error message.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
