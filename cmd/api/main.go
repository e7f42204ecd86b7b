package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/portal/internal/auth"
	"github.com/BradenHooton/portal/internal/config"
	"github.com/BradenHooton/portal/internal/database"
	"github.com/BradenHooton/portal/internal/handlers"
	middlewareCustom "github.com/BradenHooton/portal/internal/middleware"
	"github.com/BradenHooton/portal/internal/models"
	"github.com/BradenHooton/portal/internal/repositories"
	"github.com/BradenHooton/portal/internal/routes"
	"github.com/BradenHooton/portal/internal/services"
	"github.com/BradenHooton/portal/internal/storage"
	pkgauth "github.com/BradenHooton/portal/pkg/auth"
	pkghttp "github.com/BradenHooton/portal/pkg/http"
	pkglogger "github.com/BradenHooton/portal/pkg/logger"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// run wires the application and serves until a shutdown signal arrives.
// Deferred cleanup always runs before it returns.
func run(logger *slog.Logger) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		logger.Warn("unknown log level, using info", slog.String("log_level", cfg.Server.LogLevel))
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Error reporting
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Server.Env,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error("failed to initialize sentry", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Startup failures past this point are reported before the deferred flush
	var startErr error
	defer func() {
		if startErr != nil {
			sentry.CaptureException(startErr)
		}
	}()
	fail := func(format string, err error) error {
		startErr = fmt.Errorf(format, err)
		return startErr
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fail("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx)
		migrateCancel()
		if err != nil {
			return fail("failed to run migrations: %w", err)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)

	// Token codec and failed-login tracking
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer, cfg.Auth.Audience)
	logger.Info("token manager ready", slog.Any("tokens", tokenManager))

	attemptLimiter := auth.NewAttemptLimiter(auth.AttemptLimiterConfig{
		MaxAttempts: cfg.Auth.MaxLoginAttempts,
		Capacity:    cfg.Auth.AttemptCacheSize,
		TTL:         cfg.Auth.AttemptWindow,
	})

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingBaseDelay,
		RandomDelay: cfg.Auth.TimingJitter,
	})

	ipResolver, err := pkghttp.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return fail("invalid trusted proxy list: %w", err)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Profile image storage
	imageStore, err := storage.NewImageStore(storage.ImageStoreConfig{
		BaseDir:             cfg.Storage.ImageDir,
		PublicBaseURL:       cfg.Storage.PublicBaseURL,
		DefaultImageBaseURL: cfg.Storage.DefaultImageBaseURL,
		DefaultImageTimeout: cfg.Storage.DefaultImageTimeout,
		MaxBytes:            cfg.Storage.MaxProfileImageBytes,
	}, logger)
	if err != nil {
		return fail("failed to initialize image storage: %w", err)
	}

	// AWS SES email service, or a log-only sender when no sender address is configured
	var emailSender services.EmailSender
	if cfg.Email.Enabled() {
		sesCtx, sesCancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesSender, err := services.NewSESEmailSender(sesCtx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.SendTimeout, logger)
		sesCancel()
		if err != nil {
			return fail("failed to initialize email service: %w", err)
		}
		emailSender = sesSender
	} else {
		logger.Warn("EMAIL_FROM_ADDRESS not set, generated passwords will not be emailed")
		emailSender = services.NewLogEmailSender(logger)
	}

	// Initialize services
	authenticator := services.NewPasswordAuthenticator(userRepo, timingDelay, logger)
	loginService := services.NewLoginService(authenticator, userRepo, attemptLimiter, tokenManager, logger, auditLogger)
	userService := services.NewUserService(userRepo, imageStore, emailSender, attemptLimiter, logger, auditLogger)

	// Bootstrap first super admin if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, imageStore, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.Recoverer(logger))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, routes.Handlers{
		Auth:   handlers.NewAuthHandler(loginService, userService, ipResolver, logger),
		Users:  handlers.NewUserHandler(userService, cfg.Storage.MaxProfileImageBytes, logger),
		Images: handlers.NewImageHandler(imageStore, logger),
	}, tokenManager, ipResolver, routes.RateLimits{
		Login:         cfg.RateLimit.LoginPerMinute,
		Register:      cfg.RateLimit.RegisterPerMinute,
		ResetPassword: cfg.RateLimit.ResetPerMinute,
	}, logger)

	// Health check with database
	router.Get("/health", handlers.Health(db, logger))

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		runErr = fail("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
	return runErr
}

// ensureAdminUser creates the first ROLE_SUPER_ADMIN account if ADMIN_USERNAME,
// ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, images *storage.ImageStore, logger *slog.Logger) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_USERNAME, ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.FindByUsername(ctx, adminUsername)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	userID, err := pkgauth.GenerateUserID()
	if err != nil {
		return fmt.Errorf("failed to generate admin user id: %w", err)
	}

	admin := &models.User{
		UserID:          userID,
		FirstName:       "Portal",
		LastName:        "Administrator",
		Username:        adminUsername,
		Email:           adminEmail,
		PasswordHash:    hashedPassword,
		ProfileImageURL: images.DefaultURL(adminUsername),
		Role:            models.RoleSuperAdmin,
		Authorities:     models.RoleAuthorities(models.RoleSuperAdmin),
		Active:          true,
	}

	if _, err := userRepo.Save(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully", slog.String("username", adminUsername))
	return nil
}
