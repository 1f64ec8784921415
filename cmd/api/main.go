package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/taskgrid/engine/internal/api"
	"github.com/taskgrid/engine/internal/api/handlers"
	"github.com/taskgrid/engine/internal/notify"
	"github.com/taskgrid/engine/internal/repository"
	"github.com/taskgrid/engine/internal/services"
	"github.com/taskgrid/engine/pkg/config"
	"github.com/taskgrid/engine/pkg/database"
	"github.com/taskgrid/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting TaskGrid Engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories and stores
	userRepo := repository.NewUserRepository(db)
	taskStore := repository.NewTaskStore(db)

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	// Queue client for assignment notifications
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer asynqClient.Close()

	var notifier notify.Notifier = notify.NewQueueNotifier(asynqClient)
	if cfg.RedisAddr == "" {
		notifier = notify.NopNotifier{}
	}

	// Services
	taskSvc := services.NewTaskService(taskStore, notifier)
	authSvc := services.NewAuthService(userRepo, jwtSecret)

	// Handlers
	v := validator.New()
	authHandler := handlers.NewAuthHandler(authSvc, v)
	tasksHandler := handlers.NewTasksHandler(taskSvc, userRepo, v)
	profileHandler := handlers.NewProfileHandler(userRepo)

	router := api.NewRouter(api.Dependencies{
		HMACSecret:     jwtSecret,
		AuthHandler:    authHandler,
		TasksHandler:   tasksHandler,
		ProfileHandler: profileHandler,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
