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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dalgona/diary/internal/config"
	"github.com/dalgona/diary/internal/database"
	"github.com/dalgona/diary/internal/handler"
	"github.com/dalgona/diary/internal/jobs"
	"github.com/dalgona/diary/internal/middleware"
	"github.com/dalgona/diary/internal/observability"
	"github.com/dalgona/diary/internal/repository"
	"github.com/dalgona/diary/internal/service"
	"github.com/dalgona/diary/pkg/jwt"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diary API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd, map[string]string{
				"port":      "server.port",
				"env":       "server.env",
				"log-level": "log.level",
			})
			if err != nil {
				return err
			}
			cfg := config.FromViper(v)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().String("port", "", "HTTP listen port (SERVER_PORT)")
	cmd.Flags().String("env", "", "development, production or test (SERVER_ENV)")
	cmd.Flags().String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	tp, err := observability.NewTracerProvider(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	db := database.NewSurrealDB(cfg.Database.Connection())
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("namespace", cfg.Database.Namespace),
		slog.String("database", cfg.Database.Database),
	)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		return fmt.Errorf("init jwt: %w", err)
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	diaryRepo := repository.NewDiaryRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	// Services
	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService:      jwtService,
		TokenRepo:       tokenRepo,
		RefreshDuration: cfg.JWT.RefreshDuration,
	})
	identityService := service.NewIdentityService(service.IdentityServiceConfig{
		AccountRepo:  accountRepo,
		ProfileRepo:  profileRepo,
		TokenService: tokenService,
		BcryptCost:   cfg.JWT.BcryptCost,
		Metrics:      metrics,
	})
	registration := service.NewRegistrationWorkflow(service.RegistrationWorkflowConfig{
		Accounts:  identityService,
		Profiles:  profileRepo,
		NextRoute: cfg.Registration.NextRoute,
		Metrics:   metrics,
	})
	aggregator := service.NewEmotionAggregator(service.EmotionAggregatorConfig{
		Source:  diaryRepo,
		Metrics: metrics,
	})
	diaryService := service.NewDiaryService(service.DiaryServiceConfig{
		DiaryRepo: diaryRepo,
	})

	mux := newRouter(routes{
		health:      handler.NewHealthHandler(db),
		auth:        handler.NewAuthHandler(registration, identityService),
		diaries:     handler.NewDiaryHandler(diaryService),
		emotions:    handler.NewEmotionHandler(aggregator),
		tokens:      tokenService,
		metrics:     metrics,
		metricsPath: cfg.Metrics.Path,
	})

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:    cfg.RateLimit.Rate,
		Window:  cfg.RateLimit.Window,
		Burst:   cfg.RateLimit.Burst,
		MaxKeys: cfg.RateLimit.MaxKeys,
	})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: cfg.Idempotency.TTL,
	})
	defer idempotencyStore.Stop()

	cleanup := jobs.NewTokenCleanup(jobs.TokenCleanupConfig{
		Store:    tokenRepo,
		Interval: cfg.TokenCleanup.Interval,
	})
	cleanup.Start()
	defer cleanup.Stop()

	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
		middleware.Trace(tp.Tracer()),
		middleware.Metrics(metrics),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.Bool("tracing", tp.Enabled()),
			slog.Bool("metrics", metrics != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server exited")
	return err
}
