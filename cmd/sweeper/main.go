package main

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/taskgrid/engine/internal/notify"
	"github.com/taskgrid/engine/internal/repository"
	"github.com/taskgrid/engine/internal/services"
	"github.com/taskgrid/engine/pkg/config"
	"github.com/taskgrid/engine/pkg/database"
	"github.com/taskgrid/engine/pkg/logger"
)

// The sweeper marks past-due open tasks as delayed. Run it from cron or a
// scheduler; each run is a single pass over the overdue set.
func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer client.Close()
		notifier = notify.NewQueueNotifier(client)
	}

	svc := services.NewTaskService(repository.NewTaskStore(db), notifier)

	result, err := svc.MarkOverdueTasks(ctx)
	if err != nil {
		log.Fatal("overdue sweep failed", zap.Error(err))
	}

	log.Info("overdue sweep completed",
		zap.Int("marked", result.MarkedCount),
		zap.Strings("titles", result.MarkedTitles),
	)
}
