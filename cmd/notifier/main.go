// The notifier consumes application status events from Kafka and emails
// the applicant.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/mailer"
	"github.com/gartstein/jobboard/internal/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("JOBBOARD_CONFIG"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger, err := utils.NewLogger(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	var sink controller.Notifier
	if cfg.SMTP.Host != "" && cfg.SMTP.From != "" {
		m, err := mailer.New(cfg.Mailer(), logger)
		if err != nil {
			logger.Fatal("failed to initialize mailer", zap.Error(err))
		}
		sink = m
	} else {
		logger.Warn("SMTP not configured, notifications will only be logged")
		sink = events.NewLogNotifier(logger)
	}

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, logger)
	defer consumer.Close()
	consumer.RegisterHandler(func(ctx context.Context, event events.Event) error {
		return sink.Notify(ctx, event.Notification)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Notifier consuming",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	consumer.Run(ctx)
	logger.Info("Notifier stopped")
}
