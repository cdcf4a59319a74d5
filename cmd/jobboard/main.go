package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/handlers"
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

	repo, err := connectDatabase(cfg.DB(), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	notifier, closeNotifier, err := initNotifier(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize notifier", zap.Error(err))
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	identitySvc := controller.NewIdentityService(repo, auth.BcryptHasher{Cost: cfg.Auth.BcryptCost}, issuer, logger)
	jobSvc := controller.NewJobService(repo, logger)
	applicationSvc := controller.NewApplicationService(repo, notifier, logger)
	applicationSvc.SetNotifyTimeout(cfg.Notifier.Timeout)

	limiter := auth.NewRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginBurst, logger)
	stopCleanup := make(chan struct{})
	limiter.StartCleanup(time.Minute, stopCleanup)

	server := handlers.NewServer(cfg.Server.GRPCPort, cfg.Server.HTTPPort, logger)
	server.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	if err := server.RegisterHTTPGateway(issuer,
		handlers.NewIdentityHandler(identitySvc, limiter.Handler, logger),
		handlers.NewJobHandler(jobSvc, logger),
		handlers.NewApplicationHandler(applicationSvc, logger),
	); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)

	close(stopCleanup)
	applicationSvc.Drain()
	closeNotifier()
	logger.Info("Shutdown complete")
}

// connectDatabase opens the repository, retrying while the database is unreachable.
func connectDatabase(cfg *db.Config, logger *zap.Logger) (*db.Repository, error) {
	var repo *db.Repository
	operation := func() error {
		r, err := db.NewRepository(cfg)
		if err != nil {
			if errors.Is(err, e.ErrInvalidInput) {
				return backoff.Permanent(err)
			}
			logger.Warn("Database not ready, retrying", zap.Error(err))
			return err
		}
		repo = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return repo, nil
}

// initNotifier builds the configured notification sink and its cleanup.
func initNotifier(cfg *config.Config, logger *zap.Logger) (controller.Notifier, func(), error) {
	switch cfg.Notifier.Sink {
	case config.SinkKafka:
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		err := events.EnsureTopic(ctx, cfg.Kafka.Brokers, events.TopicConfig{
			Topic:             cfg.Kafka.Topic,
			NumPartitions:     cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		producer := events.NewProducer(cfg.Kafka.Brokers, logger, cfg.Kafka.Topic)
		return producer, producer.Close, nil
	case config.SinkSMTP:
		m, err := mailer.New(cfg.Mailer(), logger)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	default:
		return events.NewLogNotifier(logger), func() {}, nil
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
