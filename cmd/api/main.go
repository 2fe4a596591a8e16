package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/config"
	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/jobs"
	"github.com/sci-com/scicom-api/internal/logging"
	"github.com/sci-com/scicom-api/internal/media"
	"github.com/sci-com/scicom-api/internal/metrics"
	"github.com/sci-com/scicom-api/internal/repository/minio"
	"github.com/sci-com/scicom-api/internal/repository/ports"
	"github.com/sci-com/scicom-api/internal/repository/postgres"
	"github.com/sci-com/scicom-api/internal/repository/redis"
	"github.com/sci-com/scicom-api/internal/service"
	transporthttp "github.com/sci-com/scicom-api/internal/transport/http"
	"github.com/sci-com/scicom-api/internal/transport/mail"
	"github.com/sci-com/scicom-api/internal/util"
)

const swaggerDocPath = "docs/swagger.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load()); err != nil {
		log.Fatalf("scicom-api: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger, shipper, err := logging.New(cfg.LogLevel, cfg.LogstashTCPAddr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	if shipper != nil {
		defer shipper.Close()
		if err := metrics.RegisterDroppedLogs(shipper.Dropped); err != nil {
			logger.Warn("register dropped log metric", zap.Error(err))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	userRepo := postgres.NewUserRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	projectRepo := postgres.NewProjectRepo(db)
	applicationRepo := postgres.NewApplicationRepo(db)
	bookmarkRepo := postgres.NewBookmarkRepo(db)
	txManager := postgres.NewTxManager(db)

	var tokenRepo ports.TokenRepository
	switch cfg.TokenBackend {
	case "redis":
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		tokenRepo = redis.NewTokenStore(client, "scicom:token:")
	default:
		tokenRepo = postgres.NewTokenRepo(db)
	}
	logger.Info("token store ready", zap.String("backend", cfg.TokenBackend))

	minioClient, err := minio.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	storage := minio.NewStorage(minioClient)
	if err := storage.EnsureBuckets(ctx, cfg.MinIOBucketUsers, cfg.MinIOBucketProjects); err != nil {
		return fmt.Errorf("ensure buckets: %w", err)
	}

	mailer := mail.NewMailer(mail.Config{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		Username:        cfg.SMTPUsername,
		Password:        cfg.SMTPPassword,
		From:            cfg.SMTPFrom,
		FrontendBaseURL: cfg.FrontendBaseURL,
		Timeout:         cfg.SMTPTimeout,
	})

	tokenService := service.NewTokenService(tokenRepo, map[domain.TokenPurpose]time.Duration{
		domain.TokenPurposePasswordReset:     cfg.PasswordResetTTL,
		domain.TokenPurposeEmailVerification: cfg.EmailVerificationTTL,
	})
	authService := service.NewAuthService(
		userRepo,
		sessionRepo,
		tokenService,
		mailer,
		util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		logger.Named("auth"),
		service.AuthServiceConfig{
			AcademicEmailDomains: cfg.AcademicEmailDomains,
			PasswordMinLength:    cfg.PasswordMinLength,
		},
	)
	userService := service.NewUserService(
		userRepo,
		projectRepo,
		applicationRepo,
		bookmarkRepo,
		storage,
		logger.Named("users"),
		service.UserServiceConfig{
			Bucket:             cfg.MinIOBucketUsers,
			AvatarMaxBytes:     cfg.AvatarMaxBytes,
			DocumentMaxBytes:   cfg.DocumentMaxBytes,
			ImageProcessor:     media.NewFFMPEGProcessor(cfg.FFmpegPath, cfg.AvatarMaxDimension, cfg.AvatarMaxBytes),
			AvatarMaxDimension: cfg.AvatarMaxDimension,
			Tokens:             tokenService,
			Transactor:         txManager,
		},
	)
	projectService := service.NewProjectService(
		projectRepo,
		applicationRepo,
		bookmarkRepo,
		userRepo,
		storage,
		mailer,
		logger.Named("projects"),
		service.ProjectServiceConfig{
			Bucket:           cfg.MinIOBucketProjects,
			DocumentMaxBytes: cfg.DocumentMaxBytes,
			Transactor:       txManager,
		},
	)
	applicationService := service.NewApplicationService(applicationRepo, projectRepo, userRepo, mailer, logger.Named("applications"))
	bookmarkService := service.NewBookmarkService(bookmarkRepo, projectRepo)
	searchService := service.NewSearchService(projectRepo, userRepo)

	e := transporthttp.NewRouter(cfg.AllowOrigins, logger)
	transporthttp.RegisterAuth(e, authService, transporthttp.NewAuthRateLimiter(cfg.AuthRateLimit), logger)
	transporthttp.RegisterUsers(e, authService, userService, bookmarkService, logger)
	transporthttp.RegisterProjects(e, authService, projectService, logger)
	transporthttp.RegisterApplications(e, authService, applicationService, logger)
	transporthttp.RegisterSearch(e, authService, searchService, logger)
	transporthttp.RegisterConstants(e)
	if err := transporthttp.RegisterSwagger(e, swaggerDocPath); err != nil {
		logger.Warn("swagger docs disabled", zap.Error(err))
	}

	cleanup := jobs.NewTokenCleanup(tokenRepo, sessionRepo, logger)
	if err := cleanup.Start(cfg.TokenCleanupSchedule); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cleanup.Stop(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
