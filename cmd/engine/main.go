// Command engine runs the order execution pipeline: it wires the queue
// backend, the mock liquidity router, the worker pool and the optional
// Kafka outcome feed, then serves until interrupted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/erain9/routingo/config"
	"github.com/erain9/routingo/pkg/dex"
	"github.com/erain9/routingo/pkg/feed"
	"github.com/erain9/routingo/pkg/logging"
	"github.com/erain9/routingo/pkg/messaging"
	"github.com/erain9/routingo/pkg/messaging/kafka"
	"github.com/erain9/routingo/pkg/otel"
	"github.com/erain9/routingo/pkg/queue"
	"github.com/erain9/routingo/pkg/queue/memory"
	"github.com/erain9/routingo/pkg/queue/redis"
	"github.com/erain9/routingo/pkg/store"
	"github.com/erain9/routingo/pkg/store/sqlite"
	"github.com/erain9/routingo/pkg/subs"
	"github.com/erain9/routingo/pkg/worker"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
		Output: os.Stdout,
	})
	logger := logging.FromContext(context.Background())

	cleanup, err := otel.Init(otel.Config{
		ServiceName:      "routingo",
		ServiceVersion:   "1.0.0",
		CollectorEnabled: os.Getenv("OTEL_COLLECTOR_ENABLED") == "true",
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	if err := otel.StartRuntimeMetrics(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start runtime metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobQueue := buildQueue(cfg, logger)
	defer jobQueue.Close()

	audit := buildAuditStore(cfg, logger)
	defer audit.Close()

	outcomes := buildOutcomeSender(cfg, logger)
	defer outcomes.Close()

	// Dev convenience: tail the outcome topic so demo runs show the
	// terminal messages as they land
	if cfg.Kafka.Enabled {
		if consumer, err := kafka.SetupConsumer(ctx, logger, []string{cfg.Kafka.BrokerAddr}, cfg.Kafka.Topic); err == nil && consumer != nil {
			defer consumer.Close()
		}
	}

	registry := subs.NewRegistry()

	mockCfg, err := dex.LoadMockConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid mock router configuration")
	}
	router := dex.NewMockRouter(*mockCfg)

	pool := worker.NewPool(worker.Config{
		Concurrency:  cfg.Worker.Concurrency,
		StagePacing:  cfg.Worker.StagePacing,
		AttachGrace:  cfg.Worker.AttachGrace,
		StageTimeout: cfg.Worker.StageTimeout,
	}, worker.Deps{
		Queue:    jobQueue,
		Router:   router,
		Registry: registry,
		Outcomes: outcomes,
		Audit:    audit,
	})

	pool.Start(ctx)
	logger.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Str("queue", queueBackendName(cfg)).
		Msg("Execution pipeline started")

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	// Closing the queue unblocks every worker waiting in Dequeue
	jobQueue.Close()
	pool.Wait()
	logger.Info().Msg("Shutdown complete")
}

func queueConfig(cfg *config.Config) queue.Config {
	return queue.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BaseBackoff: cfg.Queue.BaseBackoff,
		MaxBackoff:  cfg.Queue.MaxBackoff,
	}
}

func queueBackendName(cfg *config.Config) string {
	if cfg.Redis.Addr != "" {
		return "redis"
	}
	return "memory"
}

func buildQueue(cfg *config.Config, logger zerolog.Logger) queue.JobQueue {
	if cfg.Redis.Addr == "" {
		logger.Info().Msg("Using in-memory queue backend")
		return memory.NewMemoryQueue(queueConfig(cfg))
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create zap logger: %v", err)
	}

	client := redis.GetRedisClient(&redis.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis queue backend")
	return redis.NewRedisQueue(client, cfg.Redis.Prefix, queueConfig(cfg), zapLogger)
}

func buildAuditStore(cfg *config.Config, logger zerolog.Logger) store.OrderStore {
	if cfg.Store.SQLitePath == "" {
		return store.NoopStore{}
	}

	s, err := sqlite.NewStore(cfg.Store.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Store.SQLitePath).Msg("Failed to open audit store")
	}

	logger.Info().Str("path", cfg.Store.SQLitePath).Msg("Audit store enabled")
	return s
}

func buildOutcomeSender(cfg *config.Config, logger zerolog.Logger) messaging.MessageSender {
	if !cfg.Kafka.Enabled {
		return messaging.NewMockMessageSender()
	}

	var (
		sender messaging.MessageSender
		err    error
	)
	switch cfg.Kafka.Driver {
	case "segmentio":
		sender, err = kafka.NewKafkaMessageSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
	default:
		var pool *feed.SenderPool
		pool, err = feed.NewSenderPool(3, func() (messaging.MessageSender, error) {
			return feed.ConnectSaramaMessageSender([]string{cfg.Kafka.BrokerAddr}, cfg.Kafka.Topic)
		})
		if err == nil {
			sender = feed.NewPooledMessageSender(pool)
		}
	}
	if err != nil {
		logger.Warn().Err(err).
			Str("broker", cfg.Kafka.BrokerAddr).
			Msg("Kafka unreachable, outcomes will not be published")
		return messaging.NewMockMessageSender()
	}

	logger.Info().
		Str("broker", cfg.Kafka.BrokerAddr).
		Str("topic", cfg.Kafka.Topic).
		Str("driver", cfg.Kafka.Driver).
		Msg("Publishing order outcomes to Kafka")
	return sender
}
